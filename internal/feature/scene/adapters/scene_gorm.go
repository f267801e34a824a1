package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

type sceneGorm struct {
	db *gorm.DB
}

var _ usecase.SceneRepository = (*sceneGorm)(nil)

// NewSceneRepository は指定されたgorm.DB接続でsceneGormの新しいインスタンスを生成します。
func NewSceneRepository(db *gorm.DB) *sceneGorm {
	return &sceneGorm{db: db}
}

// Save は部屋寸法とシーンJSONを1行として保存します。
func (r *sceneGorm) Save(ctx context.Context, rec *entity.SceneRecord) error {
	raw, err := json.Marshal(rec.Scene)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	m := RoomDimensionsModel{
		ProjectID:   rec.ProjectID,
		DepthMapURL: rec.DepthMapURL,
		RoomWidth:   rec.Dimensions.Width,
		RoomHeight:  rec.Dimensions.Height,
		RoomDepth:   rec.Dimensions.Depth,
		SceneData:   datatypes.JSON(raw),
		CreatedAt:   rec.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	rec.CreatedAt = m.CreatedAt
	return nil
}

// FindByProject はプロジェクトのシーンを取得します。存在しない場合は usecase.ErrSceneNotFound を返します。
func (r *sceneGorm) FindByProject(ctx context.Context, projectID string) (*entity.SceneRecord, error) {
	var m RoomDimensionsModel
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrSceneNotFound
		}
		return nil, err
	}

	var scene entity.Scene
	if err := json.Unmarshal(m.SceneData, &scene); err != nil {
		return nil, fmt.Errorf("unmarshal scene of %s: %w", projectID, err)
	}
	return &entity.SceneRecord{
		ProjectID:   m.ProjectID,
		DepthMapURL: m.DepthMapURL,
		Dimensions:  entity.RoomDimensions{Width: m.RoomWidth, Height: m.RoomHeight, Depth: m.RoomDepth},
		Scene:       scene,
		CreatedAt:   m.CreatedAt,
	}, nil
}
