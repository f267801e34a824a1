// Package inference provides HTTP clients for the object-detection and
// depth-estimation inference servers.
package inference

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the inference server clients.
type Config struct {
	DetectionURL string        // Base URL of the detection server (e.g., "http://gdino:8000")
	DepthURL     string        // Base URL of the depth server (e.g., "http://dpt:8000")
	Timeout      time.Duration // HTTP request timeout
	RateLimit    int           // Max requests per minute per client, 0 disables limiting
}

// LoadConfig loads inference configuration from environment variables.
func LoadConfig() (Config, error) {
	cfg := Config{
		DetectionURL: os.Getenv("DETECTION_SERVICE_URL"),
		DepthURL:     os.Getenv("DEPTH_SERVICE_URL"),
		Timeout:      90 * time.Second,
	}
	if v := os.Getenv("INFERENCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse INFERENCE_TIMEOUT %q: %w", v, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("INFERENCE_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse INFERENCE_RATE_LIMIT %q: %w", v, err)
		}
		cfg.RateLimit = n
	}
	return cfg, nil
}
