package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-resty/resty/v2"
	"gonum.org/v1/gonum/floats"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
	"roomscene_backend/internal/shared/ratelimiter"
)

// ErrMalformedDepth is returned when the depth server's payload does not match
// its declared shape.
var ErrMalformedDepth = errors.New("malformed depth response")

// DepthClient calls a monocular depth-estimation server.
type DepthClient struct {
	client  *resty.Client
	limiter ratelimiter.Limiter
}

var _ usecase.DepthEstimator = (*DepthClient)(nil)

// NewDepthClient creates a DepthClient. client must have its base URL set.
func NewDepthClient(client *resty.Client, limiter ratelimiter.Limiter) *DepthClient {
	return &DepthClient{client: client, limiter: limiter}
}

// EstimateDepth returns a per-pixel depth map on the image's pixel grid.
// Predictions at the model's native resolution are resampled bilinearly.
func (c *DepthClient) EstimateDepth(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return entity.DepthMap{}, err
		}
	}

	var body depthResponse
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("image", "image"+extFor(img.ContentType), bytes.NewReader(img.Data)).
		SetResult(&body).
		SetError(&apiErr).
		Post("/depth")
	if err != nil {
		return entity.DepthMap{}, fmt.Errorf("depth request: %w", err)
	}
	if resp.IsError() {
		return entity.DepthMap{}, fmt.Errorf("depth server %s: %s", resp.Status(), errorMessage(apiErr, resp))
	}
	dm, err := toDepthMap(body)
	if err != nil {
		return entity.DepthMap{}, err
	}
	if dm.Width() != img.Width || dm.Height() != img.Height {
		slog.Debug("resampling depth map", "from_width", dm.Width(), "from_height", dm.Height(),
			"to_width", img.Width, "to_height", img.Height)
		dm = dm.Resize(img.Width, img.Height)
	}
	return dm, nil
}

func toDepthMap(body depthResponse) (entity.DepthMap, error) {
	if body.Width <= 0 || body.Height <= 0 {
		return entity.DepthMap{}, fmt.Errorf("%w: shape %dx%d", ErrMalformedDepth, body.Width, body.Height)
	}
	if len(body.Depth) != body.Width*body.Height {
		return entity.DepthMap{}, fmt.Errorf("%w: %d values for %dx%d", ErrMalformedDepth, len(body.Depth), body.Width, body.Height)
	}

	values := make([][]float64, body.Height)
	for y := range values {
		values[y] = body.Depth[y*body.Width : (y+1)*body.Width : (y+1)*body.Width]
	}
	return entity.DepthMap{
		Values: values,
		Min:    floats.Min(body.Depth),
		Max:    floats.Max(body.Depth),
	}, nil
}
