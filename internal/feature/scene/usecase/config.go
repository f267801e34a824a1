package usecase

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPrompt は検出サービスに渡す既定の家具リストです（Grounding DINO形式）。
	DefaultPrompt = "chair . sofa . couch . table . desk . bed . cabinet . shelf . bookshelf . lamp . tv . plant . wardrobe . dresser . nightstand . rug ."
	// DefaultConfidenceThreshold は検出の既定信頼度しきい値です。
	DefaultConfidenceThreshold = 0.3
	// MaxImageSize は画像アップロードの最大サイズ（16MB）です。
	MaxImageSize = 16 * 1024 * 1024
	// MaxImagePixels はデコードを許可する最大画素数（5000万画素）です。
	MaxImagePixels = 50_000_000
	// DefaultMaxDimension は推論用に縮小する長辺の最大ピクセル数です。
	DefaultMaxDimension = 1024
	// DefaultProjectName はプロジェクト名が未指定の場合の表示名です。
	DefaultProjectName = "My Room"
)

// PipelineConfig はパイプラインの設定値です。
type PipelineConfig struct {
	Prompt              string        // 既定の検出プロンプト
	ConfidenceThreshold float64       // 既定の信頼度しきい値（0〜1）
	MaxImageBytes       int           // 受け付ける画像の最大バイト数
	MaxImagePixels      int           // デコード前に検査する最大画素数（幅×高さ）
	MaxDimension        int           // 前処理後の長辺の最大値
	DetectTimeout       time.Duration // 物体検出呼び出しのタイムアウト
	DepthTimeout        time.Duration // 深度推定呼び出しのタイムアウト
	StoreTimeout        time.Duration // 画像ストア・メタデータストア呼び出しのタイムアウト
	StatusTimeout       time.Duration // failed への遷移に使う独立したタイムアウト
}

// DefaultPipelineConfig は既定値の設定を返します。
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Prompt:              DefaultPrompt,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		MaxImageBytes:       MaxImageSize,
		MaxImagePixels:      MaxImagePixels,
		MaxDimension:        DefaultMaxDimension,
		DetectTimeout:       60 * time.Second,
		DepthTimeout:        60 * time.Second,
		StoreTimeout:        15 * time.Second,
		StatusTimeout:       5 * time.Second,
	}
}

// LoadPipelineConfig は環境変数から設定を読み込みます。未設定の項目は既定値を使用します。
func LoadPipelineConfig() (PipelineConfig, error) {
	cfg := DefaultPipelineConfig()
	if v := os.Getenv("FURNITURE_PROMPT"); v != "" {
		cfg.Prompt = v
	}
	if v := os.Getenv("DETECTION_CONFIDENCE_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, fmt.Errorf("parse DETECTION_CONFIDENCE_THRESHOLD %q: %w", v, err)
		}
		cfg.ConfidenceThreshold = f
	}
	if v := os.Getenv("PREPROCESS_MAX_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse PREPROCESS_MAX_DIMENSION %q: %w", v, err)
		}
		cfg.MaxDimension = n
	}
	if v := os.Getenv("MAX_IMAGE_PIXELS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("parse MAX_IMAGE_PIXELS %q: %w", v, err)
		}
		cfg.MaxImagePixels = n
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"DETECT_TIMEOUT", &cfg.DetectTimeout},
		{"DEPTH_TIMEOUT", &cfg.DepthTimeout},
		{"STORE_TIMEOUT", &cfg.StoreTimeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return cfg, fmt.Errorf("parse %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}
	return cfg, cfg.Validate()
}

// Validate は設定値の範囲を検証します。
func (c PipelineConfig) Validate() error {
	if err := validateThreshold(c.ConfidenceThreshold); err != nil {
		return err
	}
	if c.MaxDimension <= 0 {
		return fmt.Errorf("max dimension must be positive, got %d", c.MaxDimension)
	}
	if c.MaxImageBytes <= 0 {
		return fmt.Errorf("max image bytes must be positive, got %d", c.MaxImageBytes)
	}
	if c.MaxImagePixels <= 0 {
		return fmt.Errorf("max image pixels must be positive, got %d", c.MaxImagePixels)
	}
	return nil
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return fmt.Errorf("confidence threshold must be within [0, 1], got %v", t)
	}
	return nil
}
