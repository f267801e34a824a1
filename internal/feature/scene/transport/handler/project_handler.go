// Package handler はsceneフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/transport/http/dto"
	"roomscene_backend/internal/feature/scene/usecase"
	jwtmw "roomscene_backend/internal/platform/jwt"
)

// multipartOverhead は画像以外のフォームフィールド分の余裕です。
const multipartOverhead = 1 << 20

// PipelineUsecase はシーン生成パイプラインのユースケースインターフェースです。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type PipelineUsecase interface {
	Run(ctx context.Context, in usecase.RunInput) (*usecase.RunResult, error)
}

// ProjectUsecase はプロジェクト参照のユースケースインターフェースです。
type ProjectUsecase interface {
	GetProject(ctx context.Context, userID uint, projectID string) (*usecase.ProjectDetail, error)
	ListProjects(ctx context.Context, userID uint) ([]entity.Project, error)
}

// ProjectHandler はプロジェクト関連のHTTPリクエストを処理します。
type ProjectHandler struct {
	pipeline PipelineUsecase
	projects ProjectUsecase
	maxBytes int64
}

// NewProjectHandler はProjectHandlerの新しいインスタンスを生成します。
// maxImageBytes が0以下の場合は usecase.MaxImageSize を使用します。
func NewProjectHandler(pipeline PipelineUsecase, projects ProjectUsecase, maxImageBytes int) *ProjectHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = usecase.MaxImageSize
	}
	return &ProjectHandler{pipeline: pipeline, projects: projects, maxBytes: int64(maxImageBytes)}
}

// Create は部屋写真をアップロードしてパイプラインを実行します。
//
// エンドポイント: POST /v1/projects
// Content-Type: multipart/form-data
// フィールド: file（必須）, project_name, prompt, confidence_threshold（任意）
func (h *ProjectHandler) Create(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)

	file, err := c.FormFile("file")
	if err != nil {
		slog.Warn("画像ファイルの取得に失敗", "error", err, "remote_addr", c.ClientIP())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "image is too large", Kind: "invalid_input"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file is required", Kind: "invalid_input"})
		return
	}

	in := usecase.RunInput{
		UserID:      userID,
		ProjectName: c.PostForm("project_name"),
		Prompt:      c.PostForm("prompt"),
	}
	if raw := c.PostForm("confidence_threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "confidence_threshold must be a number", Kind: "invalid_input"})
			return
		}
		in.ConfidenceThreshold = &v
	}

	f, err := file.Open()
	if err != nil {
		slog.Error("画像ファイルのオープンに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read image"})
		return
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("画像ファイルのクローズに失敗", "error", err)
		}
	}()

	in.Image, err = io.ReadAll(f)
	if err != nil {
		slog.Error("画像データの読み取りに失敗", "error", err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to read image"})
		return
	}

	res, err := h.pipeline.Run(c.Request.Context(), in)
	if err != nil {
		status, kind := classify(err)
		resp := dto.ErrorResponse{Error: err.Error(), Kind: kind}
		var perr *usecase.PipelineError
		if errors.As(err, &perr) {
			resp.ProjectID = perr.ProjectID
		}
		if status >= http.StatusInternalServerError {
			slog.Error("パイプラインの実行に失敗", "error", err, "kind", kind, "project_id", resp.ProjectID)
		} else {
			slog.Warn("パイプラインの入力が不正", "error", err, "user_id", userID)
		}
		c.JSON(status, resp)
		return
	}

	c.JSON(http.StatusCreated, dto.NewCreateProjectResponse(res))
}

// Get はプロジェクトの詳細（検出結果とシーン）を返します。
//
// エンドポイント: GET /v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return
	}

	detail, err := h.projects.GetProject(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, usecase.ErrProjectNotFound) {
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "project not found", Kind: "not_found"})
			return
		}
		slog.Error("プロジェクトの取得に失敗", "error", err, "project_id", c.Param("id"))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to get project"})
		return
	}

	c.JSON(http.StatusOK, dto.NewProjectDetailResponse(detail))
}

// List はログインユーザーのプロジェクト一覧を新しい順に返します。
//
// エンドポイント: GET /v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
		return
	}

	projects, err := h.projects.ListProjects(c.Request.Context(), userID)
	if err != nil {
		slog.Error("プロジェクト一覧の取得に失敗", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to list projects"})
		return
	}

	out := make([]dto.ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, dto.NewProjectResponse(p))
	}
	c.JSON(http.StatusOK, out)
}

// classify はパイプラインのエラー分類をHTTPステータスとkind文字列に変換します。
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, usecase.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, usecase.ErrUploadFailed):
		return http.StatusBadGateway, "upload_failed"
	case errors.Is(err, usecase.ErrDetectionFailed):
		return http.StatusBadGateway, "detection_failed"
	case errors.Is(err, usecase.ErrDepthEstimationFailed):
		return http.StatusBadGateway, "depth_estimation_failed"
	case errors.Is(err, usecase.ErrPersistenceFailed):
		return http.StatusServiceUnavailable, "persistence_failed"
	case errors.Is(err, usecase.ErrSceneBuildFailed):
		return http.StatusInternalServerError, "scene_build_failed"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
