package usecase

import (
	"context"

	"roomscene_backend/internal/feature/scene/builder"
	"roomscene_backend/internal/feature/scene/domain/entity"
)

// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。

// ImageStore は画像のオブジェクトストレージを抽象化します。
type ImageStore interface {
	// Put はバイト列をkeyで保存し、公開URLを返します。
	Put(ctx context.Context, data []byte, key, contentType string) (string, error)
	// Get はkeyで保存されたバイト列を返します。
	Get(ctx context.Context, key string) ([]byte, error)
}

// Detector はテキストプロンプトに基づく物体検出サービスです。
// 結果は信頼度の降順で返されます。
type Detector interface {
	Detect(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error)
}

// DepthEstimator は単眼深度推定サービスです。
type DepthEstimator interface {
	EstimateDepth(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error)
}

// SceneBuilder は検出結果と深度マップからシーンを構築します。
type SceneBuilder interface {
	Build(detections []entity.Detection, depth entity.DepthMap, width, height int) (builder.Result, error)
}

// ProjectRepository はプロジェクトの永続化層を抽象化します。
type ProjectRepository interface {
	// Create は新しいプロジェクトを保存します。
	Create(ctx context.Context, p *entity.Project) error
	// UpdateStatus は processing のプロジェクトを終端状態へ遷移させます。
	// 既に終端状態の場合は ErrInvalidTransition を返します。
	UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error
	// FindByID はIDでプロジェクトを取得します。存在しない場合は ErrProjectNotFound を返します。
	FindByID(ctx context.Context, id string) (*entity.Project, error)
	// ListByUser はユーザーのプロジェクトを新しい順に返します。
	ListByUser(ctx context.Context, userID uint) ([]entity.Project, error)
}

// DetectionRepository は検出結果の永続化層を抽象化します。
type DetectionRepository interface {
	// SaveBatch は全件を1トランザクションで保存します（部分的な成功はありません）。
	SaveBatch(ctx context.Context, projectID string, detections []entity.Detection) error
	// FindByProject はプロジェクトの検出結果を信頼度の降順で返します。
	FindByProject(ctx context.Context, projectID string) ([]entity.Detection, error)
}

// SceneRepository は部屋寸法とシーンの永続化層を抽象化します。
type SceneRepository interface {
	// Save はシーンレコードを保存します。
	Save(ctx context.Context, rec *entity.SceneRecord) error
	// FindByProject はプロジェクトのシーンを取得します。存在しない場合は ErrSceneNotFound を返します。
	FindByProject(ctx context.Context, projectID string) (*entity.SceneRecord, error)
}
