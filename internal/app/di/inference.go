// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"roomscene_backend/internal/feature/scene/adapters/inference"
	infrahttp "roomscene_backend/internal/platform/http"
	"roomscene_backend/internal/shared/ratelimiter"
)

// NewInferenceClients creates the detection and depth clients, each with its
// own resty client and per-minute rate limiter.
func NewInferenceClients(cfg inference.Config) (*inference.DetectionClient, *inference.DepthClient) {
	det := inference.NewDetectionClient(
		infrahttp.NewRestyClient(cfg.DetectionURL, cfg.Timeout),
		newLimiter(cfg.RateLimit),
	)
	depth := inference.NewDepthClient(
		infrahttp.NewRestyClient(cfg.DepthURL, cfg.Timeout),
		newLimiter(cfg.RateLimit),
	)
	return det, depth
}

// newLimiter returns nil (unlimited) when perMinute is not positive.
func newLimiter(perMinute int) ratelimiter.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return ratelimiter.NewRateLimiter(perMinute, time.Minute)
}
