package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"roomscene_backend/internal/feature/scene/domain/entity"
)

// 警告のステップ名です。
const (
	StepPersistDetections = "persist_detections"
	StepStoreDepthMap     = "store_depth_map"
	StepPlaceFurniture    = "place_furniture"
)

// RunInput はパイプライン1回分の入力です。
type RunInput struct {
	Image               []byte
	UserID              uint
	ProjectName         string
	Prompt              string   // 空の場合は設定の既定プロンプト
	ConfidenceThreshold *float64 // nilの場合は設定の既定しきい値
}

// Warning は処理を止めなかった失敗（劣化した成功）を表します。
type Warning struct {
	Step    string
	Message string
}

// RunResult はパイプラインの成功結果です。Warningsが空でない場合は一部の補助処理が失敗しています。
type RunResult struct {
	ProjectID   string
	Scene       entity.Scene
	Detections  []entity.Detection
	DepthMapURL string // 深度画像の保存に失敗した場合は空
	Warnings    []Warning
}

// PipelineDeps はパイプラインが利用する外部コラボレーターです。
type PipelineDeps struct {
	Store      ImageStore
	Detector   Detector
	Depth      DepthEstimator
	Projects   ProjectRepository
	Detections DetectionRepository
	Scenes     SceneRepository
	Builder    SceneBuilder
}

// pipelineUsecase は写真1枚から3Dシーンを生成する一連の処理を実行します。
// 実行間で共有する可変状態は持たないため、異なるプロジェクトに対して並行に実行できます。
type pipelineUsecase struct {
	deps PipelineDeps
	cfg  PipelineConfig
	now  func() time.Time
}

// NewPipelineUsecase はpipelineUsecaseの新しいインスタンスを生成します。
func NewPipelineUsecase(deps PipelineDeps, cfg PipelineConfig) *pipelineUsecase {
	return &pipelineUsecase{deps: deps, cfg: cfg, now: time.Now}
}

// Run はアップロード → 検出・深度推定 → シーン構築 → 永続化を実行します。
//
// プロジェクト作成後に致命的なエラーが発生した場合、プロジェクトは必ず failed に遷移してから
// *PipelineError が返されます。検出結果の保存と深度画像の保存の失敗は警告として結果に含まれます。
// 外部呼び出しのリトライは行いません。
func (u *pipelineUsecase) Run(ctx context.Context, in RunInput) (*RunResult, error) {
	prompt := strings.TrimSpace(in.Prompt)
	if prompt == "" {
		prompt = u.cfg.Prompt
	}
	threshold := u.cfg.ConfidenceThreshold
	if in.ConfidenceThreshold != nil {
		if err := validateThreshold(*in.ConfidenceThreshold); err != nil {
			return nil, newPipelineError(ErrInvalidInput, "", err)
		}
		threshold = *in.ConfidenceThreshold
	}
	name := strings.TrimSpace(in.ProjectName)
	if name == "" {
		name = DefaultProjectName
	}

	// 1. 検証・正規化（失敗時は何も永続化しない）
	img, err := Canonicalize(in.Image, u.cfg.MaxImageBytes, u.cfg.MaxImagePixels)
	if err != nil {
		return nil, newPipelineError(ErrInvalidInput, "", err)
	}

	// 2. 元画像の保存
	projectID := uuid.NewString()
	key := fmt.Sprintf("images/%s_%s.%s", u.now().UTC().Format("20060102_150405"), projectID, img.Ext)
	imageURL, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (string, error) {
		return u.deps.Store.Put(ctx, img.Data, key, img.ContentType)
	})
	if err != nil {
		slog.Error("元画像のアップロードに失敗", "key", key, "error", err)
		return nil, newPipelineError(ErrUploadFailed, "", err)
	}

	// 3. プロジェクト作成（status=processing）
	project := &entity.Project{
		ID:       projectID,
		UserID:   in.UserID,
		Name:     name,
		ImageURL: imageURL,
		Status:   entity.StatusProcessing,
	}
	if _, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.deps.Projects.Create(ctx, project)
	}); err != nil {
		slog.Error("プロジェクトの作成に失敗", "project_id", projectID, "error", err)
		return nil, newPipelineError(ErrPersistenceFailed, "", err)
	}
	slog.Info("pipeline started", "project_id", projectID, "user_id", in.UserID, "format", img.Format)

	fail := func(kind, cause error) (*RunResult, error) {
		u.markFailed(ctx, projectID, kind, cause)
		return nil, newPipelineError(kind, projectID, cause)
	}

	// 4. 推論用の前処理
	modelImg, err := Preprocess(img.Image, u.cfg.MaxDimension)
	if err != nil {
		return fail(ErrInvalidInput, err)
	}

	var (
		warnings   warningList
		persistWG  sync.WaitGroup
		detections []entity.Detection
		depthMap   entity.DepthMap
	)
	defer persistWG.Wait()

	// 5〜7. 検出と深度推定は互いに独立しているため並行に実行する
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ds, err := callWithTimeout(gctx, u.cfg.DetectTimeout, func(ctx context.Context) ([]entity.Detection, error) {
			return u.deps.Detector.Detect(ctx, modelImg, prompt, threshold)
		})
		if err != nil {
			return newPipelineError(ErrDetectionFailed, projectID, err)
		}
		detections = ds
		if len(ds) > 0 {
			// 6. 検出結果の保存はベストエフォート。シーン構築はメモリ上の結果を使う
			persistWG.Add(1)
			go func() {
				defer persistWG.Done()
				u.persistDetections(ctx, projectID, ds, &warnings)
			}()
		}
		return nil
	})
	g.Go(func() error {
		dm, err := callWithTimeout(gctx, u.cfg.DepthTimeout, func(ctx context.Context) (entity.DepthMap, error) {
			return u.deps.Depth.EstimateDepth(ctx, modelImg)
		})
		if err != nil {
			return newPipelineError(ErrDepthEstimationFailed, projectID, err)
		}
		depthMap = dm
		return nil
	})
	if err := g.Wait(); err != nil {
		var pe *PipelineError
		if errors.As(err, &pe) {
			return fail(pe.Kind, pe.Err)
		}
		return fail(ErrDepthEstimationFailed, err)
	}
	// 深度マップは推論に渡した画像と同じ画素格子でなければならない
	if depthMap.Width() != modelImg.Width || depthMap.Height() != modelImg.Height {
		return fail(ErrDepthEstimationFailed, fmt.Errorf("%w: got %dx%d, image is %dx%d", ErrDepthShapeMismatch,
			depthMap.Width(), depthMap.Height(), modelImg.Width, modelImg.Height))
	}
	slog.Info("inference finished", "project_id", projectID, "detections", len(detections),
		"depth_width", depthMap.Width(), "depth_height", depthMap.Height())

	// 8. 深度画像の保存（失敗しても続行）
	depthURL := u.storeDepthMap(ctx, projectID, depthMap, &warnings)

	// 9. シーン構築
	built, err := u.deps.Builder.Build(detections, depthMap, modelImg.Width, modelImg.Height)
	if err != nil {
		return fail(ErrSceneBuildFailed, err)
	}
	for _, s := range built.Skipped {
		slog.Warn("家具の配置をスキップ", "project_id", projectID, "index", s.Index, "label", s.Label, "error", s.Err)
		warnings.add(StepPlaceFurniture, fmt.Sprintf("detection %d (%s) skipped: %v", s.Index, s.Label, s.Err))
	}

	// 10. 部屋寸法とシーンの保存
	rec := &entity.SceneRecord{
		ProjectID:   projectID,
		DepthMapURL: depthURL,
		Dimensions:  built.Scene.Room.Dimensions,
		Scene:       built.Scene,
		CreatedAt:   u.now(),
	}
	if _, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.deps.Scenes.Save(ctx, rec)
	}); err != nil {
		return fail(ErrPersistenceFailed, fmt.Errorf("save scene: %w", err))
	}

	// 11. completed へ遷移
	if _, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.deps.Projects.UpdateStatus(ctx, projectID, entity.StatusCompleted)
	}); err != nil {
		return fail(ErrPersistenceFailed, fmt.Errorf("mark completed: %w", err))
	}

	persistWG.Wait()
	slog.Info("pipeline completed", "project_id", projectID,
		"furniture", len(built.Scene.Furniture), "warnings", warnings.len())

	return &RunResult{
		ProjectID:   projectID,
		Scene:       built.Scene,
		Detections:  detections,
		DepthMapURL: depthURL,
		Warnings:    warnings.list(),
	}, nil
}

func (u *pipelineUsecase) persistDetections(ctx context.Context, projectID string, ds []entity.Detection, w *warningList) {
	_, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, u.deps.Detections.SaveBatch(ctx, projectID, ds)
	})
	if err != nil {
		slog.Warn("検出結果の保存に失敗", "project_id", projectID, "count", len(ds), "error", err)
		w.add(StepPersistDetections, err.Error())
	}
}

func (u *pipelineUsecase) storeDepthMap(ctx context.Context, projectID string, d entity.DepthMap, w *warningList) string {
	png, err := RenderDepth(d)
	if err != nil {
		slog.Warn("深度画像の生成に失敗", "project_id", projectID, "error", err)
		w.add(StepStoreDepthMap, err.Error())
		return ""
	}
	key := fmt.Sprintf("depth/%s.png", projectID)
	url, err := callWithTimeout(ctx, u.cfg.StoreTimeout, func(ctx context.Context) (string, error) {
		return u.deps.Store.Put(ctx, png, key, "image/png")
	})
	if err != nil {
		slog.Warn("深度画像のアップロードに失敗", "project_id", projectID, "key", key, "error", err)
		w.add(StepStoreDepthMap, err.Error())
		return ""
	}
	return url
}

// markFailed はプロジェクトを failed に遷移させます。
// 呼び出し元のキャンセルに影響されないよう、独立したタイムアウトで実行します。
func (u *pipelineUsecase) markFailed(ctx context.Context, projectID string, kind, cause error) {
	slog.Error("pipeline failed", "project_id", projectID, "kind", kind, "error", cause)
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.cfg.StatusTimeout)
	defer cancel()
	if err := u.deps.Projects.UpdateStatus(ctx, projectID, entity.StatusFailed); err != nil {
		slog.Error("プロジェクトを failed に更新できませんでした", "project_id", projectID, "error", err)
	}
}

// callWithTimeout はdが正の場合にタイムアウト付きのコンテキストでfnを呼び出します。
func callWithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}
	return fn(ctx)
}

// warningList は並行に追加される警告を保持します。
type warningList struct {
	mu    sync.Mutex
	items []Warning
}

func (w *warningList) add(step, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, Warning{Step: step, Message: msg})
}

func (w *warningList) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

func (w *warningList) list() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.items))
	copy(out, w.items)
	return out
}
