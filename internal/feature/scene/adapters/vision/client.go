// Package vision はGoogle Cloud Vision APIのオブジェクト検出を使用したDetectorを提供します。
package vision

import (
	"context"
	"fmt"
	"math"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

// maxResults はVision APIに要求する最大オブジェクト数です。
const maxResults = 50

// aliases はVision APIのラベルを家具プロンプトの語彙に寄せます。
var aliases = map[string]string{
	"television":   "tv",
	"houseplant":   "plant",
	"couch":        "sofa",
	"coffee table": "table",
	"bookcase":     "bookshelf",

	"kitchen & dining room table": "table",
}

// ObjectLocalizer はCloud Vision APIのOBJECT_LOCALIZATIONで家具を検出します。
type ObjectLocalizer struct {
	client *gvision.ImageAnnotatorClient
}

// ObjectLocalizerがDetectorを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*ObjectLocalizer)(nil)

// NewObjectLocalizer はADCを使用してObjectLocalizerの新しいインスタンスを生成します。
func NewObjectLocalizer(ctx context.Context) (*ObjectLocalizer, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &ObjectLocalizer{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (v *ObjectLocalizer) Close() error {
	return v.client.Close()
}

// Detect は画像から物体を検出し、プロンプトに含まれるラベルのみを返します。
// Vision APIはテキストプロンプトを受け付けないため、ラベルの絞り込みはクライアント側で行います。
func (v *ObjectLocalizer) Detect(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: img.Data},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_OBJECT_LOCALIZATION, MaxResults: maxResults},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}
	if resp.Responses[0].Error != nil {
		return nil, fmt.Errorf("vision API error: %s", resp.Responses[0].Error.Message)
	}

	return toDetections(resp.Responses[0].LocalizedObjectAnnotations, promptTerms(prompt), threshold, img.Width, img.Height), nil
}

// toDetections はVision APIの結果を検出結果に変換し、信頼度の降順に並べます。
func toDetections(objs []*visionpb.LocalizedObjectAnnotation, terms map[string]bool, threshold float64, width, height int) []entity.Detection {
	out := make([]entity.Detection, 0, len(objs))
	for _, o := range objs {
		score := float64(o.GetScore())
		if score < threshold {
			continue
		}
		label := normalizeLabel(o.GetName())
		if len(terms) > 0 && !terms[label] {
			continue
		}
		verts := o.GetBoundingPoly().GetNormalizedVertices()
		if len(verts) == 0 {
			continue
		}
		x1, y1, x2, y2 := 1.0, 1.0, 0.0, 0.0
		for _, p := range verts {
			x, y := clamp01(float64(p.GetX())), clamp01(float64(p.GetY()))
			x1, y1 = math.Min(x1, x), math.Min(y1, y)
			x2, y2 = math.Max(x2, x), math.Max(y2, y)
		}
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		w, h := float64(width), float64(height)
		out = append(out, entity.NewDetectionFromCorners(label, score, x1*w, y1*h, x2*w, y2*h, width, height))
	}
	entity.SortByConfidence(out)
	return out
}

// promptTerms は " . " 区切りのプロンプトを小文字のラベル集合に変換します。
func promptTerms(prompt string) map[string]bool {
	terms := make(map[string]bool)
	for _, t := range strings.Split(prompt, ".") {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms[normalizeLabel(t)] = true
		}
	}
	return terms
}

func normalizeLabel(name string) string {
	l := strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[l]; ok {
		return a
	}
	return l
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
