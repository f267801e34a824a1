package entity

import (
	"math"
	"sort"
)

// BBox はバウンディングボックスを表します。
// 正規化座標（画像幅・高さに対する割合）と絶対座標（ピクセル）の両方に使用します。
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection は物体検出サービスが返した1件の検出結果です。
type Detection struct {
	Label          string  `json:"label"`
	Confidence     float64 `json:"confidence"`
	BBoxNormalized BBox    `json:"bbox_normalized"`
	BBoxAbsolute   BBox    `json:"bbox_absolute"`
}

// NewDetectionFromCorners はピクセル座標の左上(x1,y1)・右下(x2,y2)から
// 正規化・絶対の両表現を持つDetectionを生成します。
func NewDetectionFromCorners(label string, confidence, x1, y1, x2, y2 float64, imageWidth, imageHeight int) Detection {
	w := x2 - x1
	h := y2 - y1
	iw := float64(imageWidth)
	ih := float64(imageHeight)
	return Detection{
		Label:      label,
		Confidence: confidence,
		BBoxNormalized: BBox{
			X:      x1 / iw,
			Y:      y1 / ih,
			Width:  w / iw,
			Height: h / ih,
		},
		BBoxAbsolute: BBox{X: x1, Y: y1, Width: w, Height: h},
	}
}

// ClampConfidence は信頼度を [0, 1] に収めます。NaN は0として扱います。
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(1, c))
}

// ClampCorners はピクセル座標の左上・右下を画像の範囲 [0,w]×[0,h] に収めます。
// 画像外にはみ出した箱は面積0になり得るため、呼び出し側で退化判定を行います。
func ClampCorners(x1, y1, x2, y2 float64, imageWidth, imageHeight int) (float64, float64, float64, float64) {
	w, h := float64(imageWidth), float64(imageHeight)
	clamp := func(v, hi float64) float64 {
		if math.IsNaN(v) {
			return 0
		}
		return math.Max(0, math.Min(hi, v))
	}
	return clamp(x1, w), clamp(y1, h), clamp(x2, w), clamp(y2, h)
}

// SortByConfidence は検出結果を信頼度の降順に並べ替えます（同値は元の順序を維持）。
func SortByConfidence(ds []Detection) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Confidence > ds[j].Confidence
	})
}
