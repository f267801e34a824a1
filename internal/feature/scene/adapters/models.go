// Package adapters はsceneフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"time"

	"gorm.io/datatypes"
)

// ProjectModel はprojectsテーブルの行です。
type ProjectModel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"not null;index:idx_projects_user_created,priority:1"`
	Name      string    `gorm:"column:project_name;size:255;not null"`
	ImageURL  string    `gorm:"size:1024;not null"`
	Status    string    `gorm:"size:16;not null;index"`
	CreatedAt time.Time `gorm:"index:idx_projects_user_created,priority:2"`
	UpdatedAt time.Time
}

func (ProjectModel) TableName() string {
	return "projects"
}

// DetectionModel はdetectionsテーブルの行です。
// bbox_* は正規化座標、abs_* はピクセル座標です。
type DetectionModel struct {
	ID         uint    `gorm:"primaryKey"`
	ProjectID  string  `gorm:"size:36;not null;index"`
	ObjectType string  `gorm:"size:64;not null"`
	Confidence float64 `gorm:"not null"`
	BBoxX      float64 `gorm:"column:bbox_x;not null"`
	BBoxY      float64 `gorm:"column:bbox_y;not null"`
	BBoxWidth  float64 `gorm:"column:bbox_width;not null"`
	BBoxHeight float64 `gorm:"column:bbox_height;not null"`
	AbsX       float64 `gorm:"column:abs_x;not null"`
	AbsY       float64 `gorm:"column:abs_y;not null"`
	AbsWidth   float64 `gorm:"column:abs_width;not null"`
	AbsHeight  float64 `gorm:"column:abs_height;not null"`
	CreatedAt  time.Time
}

func (DetectionModel) TableName() string {
	return "detections"
}

// RoomDimensionsModel はroom_dimensionsテーブルの行です。シーン全体をJSONで保持します。
type RoomDimensionsModel struct {
	ID          uint           `gorm:"primaryKey"`
	ProjectID   string         `gorm:"size:36;not null;uniqueIndex"`
	DepthMapURL string         `gorm:"size:1024"`
	RoomWidth   float64        `gorm:"not null"`
	RoomHeight  float64        `gorm:"not null"`
	RoomDepth   float64        `gorm:"not null"`
	SceneData   datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time
}

func (RoomDimensionsModel) TableName() string {
	return "room_dimensions"
}

// Models はマイグレーション対象のモデル一覧を返します。
func Models() []any {
	return []any{&ProjectModel{}, &DetectionModel{}, &RoomDimensionsModel{}}
}
