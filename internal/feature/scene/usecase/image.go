package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"roomscene_backend/internal/feature/scene/domain/entity"
)

// allowedFormats は受け付ける画像形式と、保存時の拡張子・Content-Typeです。
// webpはPNGに変換して保存します。
var allowedFormats = map[string]struct {
	ext         string
	contentType string
	reencode    bool
}{
	"jpeg": {ext: "jpg", contentType: "image/jpeg"},
	"png":  {ext: "png", contentType: "image/png"},
	"webp": {ext: "png", contentType: "image/png", reencode: true},
}

// CanonicalImage は検証・正規化済みのアップロード画像です。
type CanonicalImage struct {
	Data        []byte      // 保存するバイト列
	Format      string      // 元の形式（jpeg / png / webp）
	Ext         string      // 保存時の拡張子
	ContentType string      // 保存時のContent-Type
	Image       image.Image // デコード済み画像
}

// Canonicalize は画像バイト列を検証し、保存用の正規形に変換します。
// 空・サイズ超過・画素数超過・非対応形式・デコード不能な画像は ErrInvalidInput を返します。
// 画素数はデコード前にヘッダーで検査します。maxPixels が0以下の場合は MaxImagePixels を使用します。
func Canonicalize(data []byte, maxBytes, maxPixels int) (*CanonicalImage, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: image data is empty", ErrInvalidInput)
	}
	if len(data) > maxBytes {
		return nil, fmt.Errorf("%w: image size exceeds maximum of %d bytes", ErrInvalidInput, maxBytes)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: not a valid image: %v", ErrInvalidInput, err)
	}
	allowed, ok := allowedFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported image format %q", ErrInvalidInput, format)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image has no pixels", ErrInvalidInput)
	}
	if maxPixels <= 0 {
		maxPixels = MaxImagePixels
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(maxPixels) {
		return nil, fmt.Errorf("%w: image is %dx%d, exceeds maximum of %d pixels",
			ErrInvalidInput, cfg.Width, cfg.Height, maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidInput, format, err)
	}

	out := data
	if allowed.reencode {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("%w: re-encode %s: %v", ErrInvalidInput, format, err)
		}
		out = buf.Bytes()
	}

	return &CanonicalImage{
		Data:        out,
		Format:      format,
		Ext:         allowed.ext,
		ContentType: allowed.contentType,
		Image:       img,
	}, nil
}

// Preprocess はアスペクト比を維持して長辺をmaxDim以下に縮小し、PNGにエンコードします。
// 既にmaxDim以下の画像はサイズを変更しません。
func Preprocess(img image.Image, maxDim int) (entity.ModelImage, error) {
	if img == nil {
		return entity.ModelImage{}, errors.New("image is nil")
	}
	b := img.Bounds()
	w, h := fitWithin(b.Dx(), b.Dy(), maxDim)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	} else {
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return entity.ModelImage{}, fmt.Errorf("encode preprocessed image: %w", err)
	}
	return entity.ModelImage{
		Data:        buf.Bytes(),
		ContentType: "image/png",
		Width:       w,
		Height:      h,
	}, nil
}

// fitWithin は長辺がmaxDimに収まるサイズを返します。
func fitWithin(w, h, maxDim int) (int, int) {
	if w <= maxDim && h <= maxDim {
		return w, h
	}
	if w >= h {
		nh := int(float64(maxDim) / float64(w) * float64(h))
		return maxDim, max(nh, 1)
	}
	nw := int(float64(maxDim) / float64(h) * float64(w))
	return max(nw, 1), maxDim
}

// RenderDepth は深度マップを (d-min)/(max-min)*255 のグレースケールPNGに変換します。
// 値の幅が0の場合は中間グレーで塗りつぶします。
func RenderDepth(d entity.DepthMap) ([]byte, error) {
	w, h := d.Width(), d.Height()
	if w == 0 || h == 0 {
		return nil, errors.New("depth map is empty")
	}

	span := d.Max - d.Min
	gray := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range d.Values {
		for x := 0; x < w && x < len(row); x++ {
			var v uint8 = 128
			if span > 0 {
				n := (row[x] - d.Min) / span
				switch {
				case math.IsNaN(n) || n < 0:
					n = 0
				case n > 1:
					n = 1
				}
				v = uint8(n * 255)
			}
			gray.SetGray(x, y, color.Gray{Y: v})
		}
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, gray); err != nil {
		return nil, fmt.Errorf("encode depth image: %w", err)
	}
	return buf.Bytes(), nil
}
