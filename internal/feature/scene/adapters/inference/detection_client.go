package inference

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/go-resty/resty/v2"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
	"roomscene_backend/internal/shared/ratelimiter"
)

// DetectionClient calls a text-prompted object-detection server.
type DetectionClient struct {
	client  *resty.Client
	limiter ratelimiter.Limiter
}

var _ usecase.Detector = (*DetectionClient)(nil)

// NewDetectionClient creates a DetectionClient. client must have its base URL set.
func NewDetectionClient(client *resty.Client, limiter ratelimiter.Limiter) *DetectionClient {
	return &DetectionClient{client: client, limiter: limiter}
}

// Detect uploads the image with the prompt and returns detections at or above
// threshold, highest confidence first.
func (c *DetectionClient) Detect(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var body detectResponse
	var apiErr errorResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetFileReader("image", "image"+extFor(img.ContentType), bytes.NewReader(img.Data)).
		SetFormData(map[string]string{
			"prompt":    prompt,
			"threshold": strconv.FormatFloat(threshold, 'f', -1, 64),
		}).
		SetResult(&body).
		SetError(&apiErr).
		Post("/detect")
	if err != nil {
		return nil, fmt.Errorf("detection request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("detection server %s: %s", resp.Status(), errorMessage(apiErr, resp))
	}

	out := make([]entity.Detection, 0, len(body.Detections))
	for _, d := range body.Detections {
		score := entity.ClampConfidence(d.Score)
		if score < threshold {
			continue
		}
		x1, y1, x2, y2 := entity.ClampCorners(d.Box[0], d.Box[1], d.Box[2], d.Box[3], img.Width, img.Height)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		out = append(out, entity.NewDetectionFromCorners(d.Label, score, x1, y1, x2, y2, img.Width, img.Height))
	}
	entity.SortByConfidence(out)
	return out, nil
}

func extFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func errorMessage(apiErr errorResponse, resp *resty.Response) string {
	if apiErr.Error != "" {
		return apiErr.Error
	}
	return resp.String()
}
