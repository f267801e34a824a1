// Package dto はsceneフィーチャーのリクエスト/レスポンスDTOを定義します。
package dto

import (
	"time"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

// WarningResponse はパイプラインの警告です。
type WarningResponse struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// StatsResponse はシーンの集計値です。
type StatsResponse struct {
	FurnitureCount int                   `json:"furniture_count"`
	RoomDimensions entity.RoomDimensions `json:"room_dimensions"`
}

// CreateProjectResponse は POST /v1/projects のレスポンスDTOです。
type CreateProjectResponse struct {
	ProjectID   string            `json:"project_id"`
	Scene       entity.Scene      `json:"scene"`
	Stats       StatsResponse     `json:"stats"`
	DepthMapURL string            `json:"depth_map_url"`
	Warnings    []WarningResponse `json:"warnings"`
}

// DetectionResponse は検出結果1件です。
type DetectionResponse struct {
	Label          string      `json:"label"`
	Confidence     float64     `json:"confidence"`
	BBoxNormalized entity.BBox `json:"bbox_normalized"`
	BBoxAbsolute   entity.BBox `json:"bbox_absolute"`
}

// ProjectResponse はプロジェクトの概要です。
type ProjectResponse struct {
	ID        string `json:"id"`
	Name      string `json:"project_name"`
	ImageURL  string `json:"image_url"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ProjectDetailResponse は GET /v1/projects/:id のレスポンスDTOです。
// sceneは処理中または失敗したプロジェクトではnullです。
type ProjectDetailResponse struct {
	Project     ProjectResponse     `json:"project"`
	Detections  []DetectionResponse `json:"detections"`
	Scene       *entity.Scene       `json:"scene"`
	DepthMapURL string              `json:"depth_map_url,omitempty"`
}

// NewCreateProjectResponse はパイプラインの結果をレスポンスDTOに変換します。
func NewCreateProjectResponse(res *usecase.RunResult) CreateProjectResponse {
	warnings := make([]WarningResponse, 0, len(res.Warnings))
	for _, w := range res.Warnings {
		warnings = append(warnings, WarningResponse{Step: w.Step, Message: w.Message})
	}
	return CreateProjectResponse{
		ProjectID: res.ProjectID,
		Scene:     res.Scene,
		Stats: StatsResponse{
			FurnitureCount: len(res.Scene.Furniture),
			RoomDimensions: res.Scene.Room.Dimensions,
		},
		DepthMapURL: res.DepthMapURL,
		Warnings:    warnings,
	}
}

// NewProjectResponse はプロジェクトをレスポンスDTOに変換します。
func NewProjectResponse(p entity.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewProjectDetailResponse はプロジェクト詳細をレスポンスDTOに変換します。
func NewProjectDetailResponse(d *usecase.ProjectDetail) ProjectDetailResponse {
	dets := make([]DetectionResponse, 0, len(d.Detections))
	for _, x := range d.Detections {
		dets = append(dets, DetectionResponse{
			Label:          x.Label,
			Confidence:     x.Confidence,
			BBoxNormalized: x.BBoxNormalized,
			BBoxAbsolute:   x.BBoxAbsolute,
		})
	}
	out := ProjectDetailResponse{
		Project:    NewProjectResponse(d.Project),
		Detections: dets,
	}
	if d.Scene != nil {
		scene := d.Scene.Scene
		out.Scene = &scene
		out.DepthMapURL = d.Scene.DepthMapURL
	}
	return out
}
