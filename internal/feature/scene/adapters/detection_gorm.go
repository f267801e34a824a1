package adapters

import (
	"context"

	"gorm.io/gorm"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

type detectionGorm struct {
	db *gorm.DB
}

var _ usecase.DetectionRepository = (*detectionGorm)(nil)

// NewDetectionRepository は指定されたgorm.DB接続でdetectionGormの新しいインスタンスを生成します。
func NewDetectionRepository(db *gorm.DB) *detectionGorm {
	return &detectionGorm{db: db}
}

// SaveBatch は検出結果を1トランザクションで一括保存します。
// いずれかの行の保存に失敗した場合は全件がロールバックされます。
func (r *detectionGorm) SaveBatch(ctx context.Context, projectID string, detections []entity.Detection) error {
	if len(detections) == 0 {
		return nil
	}
	ms := make([]DetectionModel, 0, len(detections))
	for _, d := range detections {
		ms = append(ms, DetectionModel{
			ProjectID:  projectID,
			ObjectType: d.Label,
			Confidence: d.Confidence,
			BBoxX:      d.BBoxNormalized.X,
			BBoxY:      d.BBoxNormalized.Y,
			BBoxWidth:  d.BBoxNormalized.Width,
			BBoxHeight: d.BBoxNormalized.Height,
			AbsX:       d.BBoxAbsolute.X,
			AbsY:       d.BBoxAbsolute.Y,
			AbsWidth:   d.BBoxAbsolute.Width,
			AbsHeight:  d.BBoxAbsolute.Height,
		})
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&ms, 100).Error
	})
}

// FindByProject はプロジェクトの検出結果を信頼度の降順で返します。
func (r *detectionGorm) FindByProject(ctx context.Context, projectID string) ([]entity.Detection, error) {
	var rows []DetectionModel
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("confidence DESC").
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Detection, 0, len(rows))
	for _, m := range rows {
		out = append(out, entity.Detection{
			Label:          m.ObjectType,
			Confidence:     m.Confidence,
			BBoxNormalized: entity.BBox{X: m.BBoxX, Y: m.BBoxY, Width: m.BBoxWidth, Height: m.BBoxHeight},
			BBoxAbsolute:   entity.BBox{X: m.AbsX, Y: m.AbsY, Width: m.AbsWidth, Height: m.AbsHeight},
		})
	}
	return out, nil
}
