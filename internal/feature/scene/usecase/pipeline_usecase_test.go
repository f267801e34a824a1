package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roomscene_backend/internal/feature/scene/builder"
	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/geometry"
	"roomscene_backend/internal/feature/scene/usecase"
)

// pipelineRunner はテスト対象のユースケースが満たすインターフェースです。
type pipelineRunner interface {
	Run(ctx context.Context, in usecase.RunInput) (*usecase.RunResult, error)
}

// pipelineFixture はテストごとに差し替え可能なモック一式です。
type pipelineFixture struct {
	store      *mockImageStore
	detector   *mockDetector
	depth      *mockDepthEstimator
	projects   *mockProjectRepository
	detections *mockDetectionRepository
	scenes     *mockSceneRepository
}

func newPipelineFixture() *pipelineFixture {
	return &pipelineFixture{
		store: &mockImageStore{},
		detector: &mockDetector{
			DetectFunc: func(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
				return []entity.Detection{
					entity.NewDetectionFromCorners("chair", 0.85, 320, 300, 480, 480, img.Width, img.Height),
				}, nil
			},
		},
		depth: &mockDepthEstimator{
			EstimateDepthFunc: func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
				return uniformDepth(img.Width, img.Height, 4.0), nil
			},
		},
		projects:   &mockProjectRepository{},
		detections: &mockDetectionRepository{},
		scenes:     &mockSceneRepository{},
	}
}

func (f *pipelineFixture) usecase() pipelineRunner {
	return usecase.NewPipelineUsecase(usecase.PipelineDeps{
		Store:      f.store,
		Detector:   f.detector,
		Depth:      f.depth,
		Projects:   f.projects,
		Detections: f.detections,
		Scenes:     f.scenes,
		Builder:    builder.New(geometry.DefaultCamera()),
	}, usecase.DefaultPipelineConfig())
}

func (f *pipelineFixture) statuses() []entity.ProjectStatus {
	out := make([]entity.ProjectStatus, 0, len(f.projects.Updates))
	for _, u := range f.projects.Updates {
		out = append(out, u.Status)
	}
	return out
}

func TestPipelineUsecase_Run_Success(t *testing.T) {
	f := newPipelineFixture()

	res, err := f.usecase().Run(context.Background(), usecase.RunInput{
		Image:       encodePNG(t, 800, 600),
		UserID:      7,
		ProjectName: "Living room",
	})
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.NotEmpty(t, res.ProjectID)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Scene.Furniture, 1)
	assert.Equal(t, "chair", res.Scene.Furniture[0].Type)
	assert.Equal(t, 1, res.Scene.Furniture[0].ID)
	assert.InDelta(t, 4.0, res.Scene.Furniture[0].Position.Z, 1e-9)
	assert.InDelta(t, 4.0, res.Scene.Room.Dimensions.Depth, 1e-9)
	assert.Equal(t, "/media/depth/"+res.ProjectID+".png", res.DepthMapURL)

	require.Len(t, f.projects.Created, 1)
	created := f.projects.Created[0]
	assert.Equal(t, res.ProjectID, created.ID)
	assert.Equal(t, uint(7), created.UserID)
	assert.Equal(t, "Living room", created.Name)
	assert.Equal(t, entity.StatusProcessing, created.Status)
	assert.True(t, strings.HasPrefix(created.ImageURL, "/media/images/"))
	assert.True(t, strings.HasSuffix(created.ImageURL, "_"+res.ProjectID+".png"))

	assert.Equal(t, []entity.ProjectStatus{entity.StatusCompleted}, f.statuses())
	assert.Equal(t, 1, f.detections.SaveBatchCalls)
	require.Len(t, f.scenes.Saved, 1)
	assert.Equal(t, res.Scene, f.scenes.Saved[0].Scene)
	assert.Equal(t, res.Scene.Room.Dimensions, f.scenes.Saved[0].Dimensions)

	assert.Equal(t, usecase.DefaultPrompt, f.detector.LastPrompt)
	assert.InDelta(t, usecase.DefaultConfidenceThreshold, f.detector.LastThreshold, 1e-9)
}

func TestPipelineUsecase_Run_DefaultsAndOverrides(t *testing.T) {
	f := newPipelineFixture()
	threshold := 0.55

	_, err := f.usecase().Run(context.Background(), usecase.RunInput{
		Image:               encodePNG(t, 64, 48),
		Prompt:              "bed . lamp .",
		ConfidenceThreshold: &threshold,
	})
	require.NoError(t, err)

	require.Len(t, f.projects.Created, 1)
	assert.Equal(t, usecase.DefaultProjectName, f.projects.Created[0].Name)
	assert.Equal(t, "bed . lamp .", f.detector.LastPrompt)
	assert.InDelta(t, 0.55, f.detector.LastThreshold, 1e-9)
}

func TestPipelineUsecase_Run_ZeroDetections(t *testing.T) {
	f := newPipelineFixture()
	f.detector.DetectFunc = func(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
		return nil, nil
	}

	res, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 200, 100)})
	require.NoError(t, err)

	assert.Empty(t, res.Scene.Furniture)
	assert.Equal(t, 0, f.detections.SaveBatchCalls)
	assert.Equal(t, []entity.ProjectStatus{entity.StatusCompleted}, f.statuses())
	require.Len(t, f.scenes.Saved, 1)
}

func TestPipelineUsecase_Run_Failures(t *testing.T) {
	testCases := []struct {
		name         string
		image        func(t *testing.T) []byte
		threshold    *float64
		setup        func(f *pipelineFixture)
		expectedKind error
		projectMade  bool
	}{
		{
			name:         "error: empty image",
			image:        func(t *testing.T) []byte { return nil },
			expectedKind: usecase.ErrInvalidInput,
		},
		{
			name:         "error: undecodable image",
			image:        func(t *testing.T) []byte { return []byte("not an image") },
			expectedKind: usecase.ErrInvalidInput,
		},
		{
			name:         "error: threshold out of range",
			image:        func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			threshold:    func() *float64 { v := 1.5; return &v }(),
			expectedKind: usecase.ErrInvalidInput,
		},
		{
			name:  "error: upload fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.store.PutFunc = func(ctx context.Context, data []byte, key, contentType string) (string, error) {
					return "", ErrBackend
				}
			},
			expectedKind: usecase.ErrUploadFailed,
		},
		{
			name:  "error: project insert fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.projects.CreateFunc = func(ctx context.Context, p *entity.Project) error { return ErrBackend }
			},
			expectedKind: usecase.ErrPersistenceFailed,
		},
		{
			name:  "error: detection service fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.detector.DetectFunc = func(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
					return nil, ErrBackend
				}
			},
			expectedKind: usecase.ErrDetectionFailed,
			projectMade:  true,
		},
		{
			name:  "error: depth service fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.depth.EstimateDepthFunc = func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
					return entity.DepthMap{}, ErrBackend
				}
			},
			expectedKind: usecase.ErrDepthEstimationFailed,
			projectMade:  true,
		},
		{
			name:  "error: scene save fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.scenes.SaveFunc = func(ctx context.Context, rec *entity.SceneRecord) error { return ErrBackend }
			},
			expectedKind: usecase.ErrPersistenceFailed,
			projectMade:  true,
		},
		{
			name:  "error: completing the project fails",
			image: func(t *testing.T) []byte { return encodePNG(t, 10, 10) },
			setup: func(f *pipelineFixture) {
				f.projects.UpdateStatusFunc = func(ctx context.Context, id string, status entity.ProjectStatus) error {
					if status == entity.StatusCompleted {
						return ErrBackend
					}
					return nil
				}
			},
			expectedKind: usecase.ErrPersistenceFailed,
			projectMade:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newPipelineFixture()
			if tc.setup != nil {
				tc.setup(f)
			}

			res, err := f.usecase().Run(context.Background(), usecase.RunInput{
				Image:               tc.image(t),
				ConfidenceThreshold: tc.threshold,
			})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.ErrorIs(t, err, tc.expectedKind)

			var pe *usecase.PipelineError
			require.ErrorAs(t, err, &pe)

			if !tc.projectMade {
				assert.Empty(t, pe.ProjectID)
				assert.Empty(t, f.projects.Updates)
				return
			}
			assert.NotEmpty(t, pe.ProjectID)
			require.NotEmpty(t, f.projects.Updates)
			last := f.projects.Updates[len(f.projects.Updates)-1]
			assert.Equal(t, pe.ProjectID, last.ID)
			assert.Equal(t, entity.StatusFailed, last.Status)
		})
	}
}

func TestPipelineUsecase_Run_InvalidInputHasNoSideEffects(t *testing.T) {
	f := newPipelineFixture()

	_, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: make([]byte, usecase.MaxImageSize+1)})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	assert.Empty(t, f.store.Keys)
	assert.Empty(t, f.projects.Created)
	assert.Equal(t, 0, f.detector.DetectCalls)
}

func TestPipelineUsecase_Run_DepthFailureSavesNoScene(t *testing.T) {
	f := newPipelineFixture()
	f.depth.EstimateDepthFunc = func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
		return entity.DepthMap{}, ErrBackend
	}

	_, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 32, 32)})
	require.ErrorIs(t, err, usecase.ErrDepthEstimationFailed)
	assert.ErrorIs(t, err, ErrBackend)

	assert.Empty(t, f.scenes.Saved)
	assert.Equal(t, []entity.ProjectStatus{entity.StatusFailed}, f.statuses())
	// 元画像のみ保存され、深度画像は保存されない
	require.Len(t, f.store.Keys, 1)
	assert.True(t, strings.HasPrefix(f.store.Keys[0], "images/"))
}

func TestPipelineUsecase_Run_Warnings(t *testing.T) {
	t.Run("detection persistence fails", func(t *testing.T) {
		f := newPipelineFixture()
		f.detections.SaveBatchFunc = func(ctx context.Context, projectID string, ds []entity.Detection) error {
			return ErrBackend
		}

		res, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 800, 600)})
		require.NoError(t, err)

		require.Len(t, res.Warnings, 1)
		assert.Equal(t, usecase.StepPersistDetections, res.Warnings[0].Step)
		assert.Len(t, res.Scene.Furniture, 1)
		assert.Equal(t, []entity.ProjectStatus{entity.StatusCompleted}, f.statuses())
	})

	t.Run("depth image upload fails", func(t *testing.T) {
		f := newPipelineFixture()
		f.store.PutFunc = func(ctx context.Context, data []byte, key, contentType string) (string, error) {
			if strings.HasPrefix(key, "depth/") {
				return "", ErrBackend
			}
			return "/media/" + key, nil
		}

		res, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 800, 600)})
		require.NoError(t, err)

		require.Len(t, res.Warnings, 1)
		assert.Equal(t, usecase.StepStoreDepthMap, res.Warnings[0].Step)
		assert.Empty(t, res.DepthMapURL)
		require.Len(t, f.scenes.Saved, 1)
		assert.Empty(t, f.scenes.Saved[0].DepthMapURL)
	})

	t.Run("item with invalid depth is skipped", func(t *testing.T) {
		f := newPipelineFixture()
		f.depth.EstimateDepthFunc = func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
			dm := uniformDepth(img.Width, img.Height, 4.0)
			// 椅子の中心 (400,390) だけ負の深度
			dm.Values[390][400] = -1
			dm.Min = -1
			return dm, nil
		}

		res, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 800, 600)})
		require.NoError(t, err)

		assert.Empty(t, res.Scene.Furniture)
		require.Len(t, res.Warnings, 1)
		assert.Equal(t, usecase.StepPlaceFurniture, res.Warnings[0].Step)
		assert.Contains(t, res.Warnings[0].Message, "chair")
	})
}

func TestPipelineUsecase_Run_DepthShapeMismatch(t *testing.T) {
	f := newPipelineFixture()
	f.depth.EstimateDepthFunc = func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
		return uniformDepth(img.Width/2, img.Height/2, 4.0), nil
	}

	res, err := f.usecase().Run(context.Background(), usecase.RunInput{Image: encodePNG(t, 800, 600)})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.ErrorIs(t, err, usecase.ErrDepthEstimationFailed)
	assert.ErrorIs(t, err, usecase.ErrDepthShapeMismatch)

	var perr *usecase.PipelineError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.ProjectID)
	assert.Empty(t, f.scenes.Saved)
	assert.Equal(t, []entity.ProjectStatus{entity.StatusFailed}, f.statuses())
}

func TestPipelineUsecase_Run_CancelledStillMarksFailed(t *testing.T) {
	f := newPipelineFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.detector.DetectFunc = func(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}

	_, err := f.usecase().Run(ctx, usecase.RunInput{Image: encodePNG(t, 32, 32)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, usecase.ErrDetectionFailed) || errors.Is(err, usecase.ErrDepthEstimationFailed))
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, f.projects.Updates, 1)
	assert.Equal(t, entity.StatusFailed, f.projects.Updates[0].Status)
	assert.NoError(t, f.projects.Updates[0].CtxErr, "status update must not inherit the cancelled context")
}
