package usecase

import (
	"context"
	"errors"
	"fmt"

	"roomscene_backend/internal/feature/scene/domain/entity"
)

// ProjectDetail はプロジェクトと、その検出結果・シーンをまとめたものです。
// Sceneは処理中または失敗したプロジェクトではnilです。
type ProjectDetail struct {
	Project    entity.Project
	Detections []entity.Detection
	Scene      *entity.SceneRecord
}

type projectUsecase struct {
	projects   ProjectRepository
	detections DetectionRepository
	scenes     SceneRepository
}

// NewProjectUsecase はprojectUsecaseの新しいインスタンスを生成します。
func NewProjectUsecase(projects ProjectRepository, detections DetectionRepository, scenes SceneRepository) *projectUsecase {
	return &projectUsecase{projects: projects, detections: detections, scenes: scenes}
}

// GetProject はユーザーが所有するプロジェクトの詳細を返します。
// 他ユーザーのプロジェクトは存在しないものとして ErrProjectNotFound を返します。
func (u *projectUsecase) GetProject(ctx context.Context, userID uint, projectID string) (*ProjectDetail, error) {
	p, err := u.projects.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("find project %s: %w", projectID, err)
	}
	if p.UserID != userID {
		return nil, ErrProjectNotFound
	}

	dets, err := u.detections.FindByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("find detections of %s: %w", projectID, err)
	}

	var scene *entity.SceneRecord
	if p.Status == entity.StatusCompleted {
		scene, err = u.scenes.FindByProject(ctx, projectID)
		if err != nil && !errors.Is(err, ErrSceneNotFound) {
			return nil, fmt.Errorf("find scene of %s: %w", projectID, err)
		}
	}

	return &ProjectDetail{Project: *p, Detections: dets, Scene: scene}, nil
}

// ListProjects はユーザーのプロジェクトを新しい順に返します。
func (u *projectUsecase) ListProjects(ctx context.Context, userID uint) ([]entity.Project, error) {
	ps, err := u.projects.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects of user %d: %w", userID, err)
	}
	return ps, nil
}
