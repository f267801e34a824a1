// Package gemini はGoogle Gemini APIのバウンディングボックス検出を使用したDetectorを提供します。
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// boxScale はGeminiが返す box_2d 座標の正規化スケールです。
	boxScale = 1000.0
)

const instruction = `Detect every piece of furniture in the image that matches one of these labels: %s
Return a JSON array. Each element must be {"label": string, "box_2d": [ymin, xmin, ymax, xmax], "confidence": number}.
Coordinates are normalized to 0-1000. confidence is between 0 and 1. Use only the given labels.`

// BoxDetector はGemini APIの物体検出機能で家具を検出します。
type BoxDetector struct {
	client *genai.Client
	model  string
}

// BoxDetectorがDetectorを実装していることをコンパイル時に検証します。
var _ usecase.Detector = (*BoxDetector)(nil)

// NewBoxDetector はADCを使用してBoxDetectorの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewBoxDetector(ctx context.Context, model string) (*BoxDetector, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &BoxDetector{client: client, model: model}, nil
}

// Detect は画像とラベル一覧をGeminiに送り、JSONで返された検出結果を変換します。
func (g *BoxDetector) Detect(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
	labels := strings.Join(splitPrompt(prompt), ", ")
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(img.Data, img.ContentType),
			genai.NewPartFromText(fmt.Sprintf(instruction, labels)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini API request failed: %w", err)
	}
	return parseBoxes(resp.Text(), threshold, img.Width, img.Height)
}

type box struct {
	Label      string     `json:"label"`
	Box2D      [4]float64 `json:"box_2d"`
	Confidence *float64   `json:"confidence"`
}

// parseBoxes は box_2d 形式のJSONを検出結果に変換します。
// confidenceが省略された要素は1.0として扱います。
func parseBoxes(text string, threshold float64, width, height int) ([]entity.Detection, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimSuffix(strings.TrimPrefix(text, "```"), "```")

	var boxes []box
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &boxes); err != nil {
		return nil, fmt.Errorf("decode gemini detections: %w", err)
	}

	w, h := float64(width), float64(height)
	out := make([]entity.Detection, 0, len(boxes))
	for _, b := range boxes {
		conf := 1.0
		if b.Confidence != nil {
			conf = entity.ClampConfidence(*b.Confidence)
		}
		if conf < threshold {
			continue
		}
		ymin, xmin, ymax, xmax := b.Box2D[0], b.Box2D[1], b.Box2D[2], b.Box2D[3]
		x1, y1, x2, y2 := entity.ClampCorners(
			xmin/boxScale*w, ymin/boxScale*h, xmax/boxScale*w, ymax/boxScale*h, width, height)
		if x2 <= x1 || y2 <= y1 {
			continue
		}
		out = append(out, entity.NewDetectionFromCorners(
			strings.ToLower(strings.TrimSpace(b.Label)), conf, x1, y1, x2, y2, width, height,
		))
	}
	entity.SortByConfidence(out)
	return out, nil
}

func splitPrompt(prompt string) []string {
	var labels []string
	for _, t := range strings.Split(prompt, ".") {
		if t = strings.TrimSpace(t); t != "" {
			labels = append(labels, t)
		}
	}
	return labels
}
