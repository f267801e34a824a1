package di

import (
	"context"
	"fmt"
	"os"
	"strings"

	"roomscene_backend/internal/feature/scene/adapters/gemini"
	"roomscene_backend/internal/feature/scene/adapters/vision"
	"roomscene_backend/internal/feature/scene/usecase"
)

// Detector backends selectable with DETECTOR_BACKEND.
const (
	BackendHTTP   = "http"
	BackendVision = "vision"
	BackendGemini = "gemini"
)

// DetectorBackendFromEnv returns DETECTOR_BACKEND, defaulting to "http".
func DetectorBackendFromEnv() string {
	b := strings.ToLower(strings.TrimSpace(os.Getenv("DETECTOR_BACKEND")))
	if b == "" {
		return BackendHTTP
	}
	return b
}

// NewDetector selects the Detector implementation for backend.
// The returned cleanup releases any client it created and is never nil.
func NewDetector(ctx context.Context, backend string, httpDetector usecase.Detector) (usecase.Detector, func(), error) {
	noop := func() {}
	switch backend {
	case BackendHTTP:
		return httpDetector, noop, nil
	case BackendVision:
		v, err := vision.NewObjectLocalizer(ctx)
		if err != nil {
			return nil, noop, err
		}
		return v, func() { _ = v.Close() }, nil
	case BackendGemini:
		g, err := gemini.NewBoxDetector(ctx, os.Getenv("GEMINI_MODEL"))
		if err != nil {
			return nil, noop, err
		}
		return g, noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown detector backend %q", backend)
	}
}
