package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"roomscene_backend/internal/feature/scene/domain/entity"
)

// ErrBackend はモックと期待値の間で共有されるセンチネルエラーです。
var ErrBackend = errors.New("backend error")

// mockImageStore はImageStoreインターフェースのモック実装です。
type mockImageStore struct {
	mu      sync.Mutex
	PutFunc func(ctx context.Context, data []byte, key, contentType string) (string, error)
	Keys    []string
}

func (m *mockImageStore) Put(ctx context.Context, data []byte, key, contentType string) (string, error) {
	m.mu.Lock()
	m.Keys = append(m.Keys, key)
	m.mu.Unlock()
	if m.PutFunc != nil {
		return m.PutFunc(ctx, data, key, contentType)
	}
	return "/media/" + key, nil
}

func (m *mockImageStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("Get is not implemented")
}

// mockDetector はDetectorインターフェースのモック実装です。
type mockDetector struct {
	DetectFunc    func(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error)
	DetectCalls   int
	LastPrompt    string
	LastThreshold float64
}

func (m *mockDetector) Detect(ctx context.Context, img entity.ModelImage, prompt string, threshold float64) ([]entity.Detection, error) {
	m.DetectCalls++
	m.LastPrompt = prompt
	m.LastThreshold = threshold
	if m.DetectFunc != nil {
		return m.DetectFunc(ctx, img, prompt, threshold)
	}
	return nil, errors.New("DetectFunc is not implemented")
}

// mockDepthEstimator はDepthEstimatorインターフェースのモック実装です。
type mockDepthEstimator struct {
	EstimateDepthFunc func(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error)
}

func (m *mockDepthEstimator) EstimateDepth(ctx context.Context, img entity.ModelImage) (entity.DepthMap, error) {
	if m.EstimateDepthFunc != nil {
		return m.EstimateDepthFunc(ctx, img)
	}
	return entity.DepthMap{}, errors.New("EstimateDepthFunc is not implemented")
}

// statusUpdate はUpdateStatusの呼び出し記録です。
type statusUpdate struct {
	ID     string
	Status entity.ProjectStatus
	CtxErr error
}

// mockProjectRepository はProjectRepositoryインターフェースのモック実装です。
type mockProjectRepository struct {
	mu               sync.Mutex
	CreateFunc       func(ctx context.Context, p *entity.Project) error
	UpdateStatusFunc func(ctx context.Context, id string, status entity.ProjectStatus) error
	FindByIDFunc     func(ctx context.Context, id string) (*entity.Project, error)
	ListByUserFunc   func(ctx context.Context, userID uint) ([]entity.Project, error)
	Created          []entity.Project
	Updates          []statusUpdate
}

func (m *mockProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	if m.CreateFunc != nil {
		if err := m.CreateFunc(ctx, p); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, *p)
	return nil
}

func (m *mockProjectRepository) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	m.mu.Lock()
	m.Updates = append(m.Updates, statusUpdate{ID: id, Status: status, CtxErr: ctx.Err()})
	m.mu.Unlock()
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, errors.New("FindByIDFunc is not implemented")
}

func (m *mockProjectRepository) ListByUser(ctx context.Context, userID uint) ([]entity.Project, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, errors.New("ListByUserFunc is not implemented")
}

// mockDetectionRepository はDetectionRepositoryインターフェースのモック実装です。
type mockDetectionRepository struct {
	mu                sync.Mutex
	SaveBatchFunc     func(ctx context.Context, projectID string, ds []entity.Detection) error
	FindByProjectFunc func(ctx context.Context, projectID string) ([]entity.Detection, error)
	SaveBatchCalls    int
}

func (m *mockDetectionRepository) SaveBatch(ctx context.Context, projectID string, ds []entity.Detection) error {
	m.mu.Lock()
	m.SaveBatchCalls++
	m.mu.Unlock()
	if m.SaveBatchFunc != nil {
		return m.SaveBatchFunc(ctx, projectID, ds)
	}
	return nil
}

func (m *mockDetectionRepository) FindByProject(ctx context.Context, projectID string) ([]entity.Detection, error) {
	if m.FindByProjectFunc != nil {
		return m.FindByProjectFunc(ctx, projectID)
	}
	return nil, errors.New("FindByProjectFunc is not implemented")
}

// mockSceneRepository はSceneRepositoryインターフェースのモック実装です。
type mockSceneRepository struct {
	SaveFunc          func(ctx context.Context, rec *entity.SceneRecord) error
	FindByProjectFunc func(ctx context.Context, projectID string) (*entity.SceneRecord, error)
	Saved             []entity.SceneRecord
}

func (m *mockSceneRepository) Save(ctx context.Context, rec *entity.SceneRecord) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, rec); err != nil {
			return err
		}
	}
	m.Saved = append(m.Saved, *rec)
	return nil
}

func (m *mockSceneRepository) FindByProject(ctx context.Context, projectID string) (*entity.SceneRecord, error) {
	if m.FindByProjectFunc != nil {
		return m.FindByProjectFunc(ctx, projectID)
	}
	return nil, errors.New("FindByProjectFunc is not implemented")
}

// encodePNG は単色のw×h PNG画像を生成します。
func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 100, B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// uniformDepth は全画素が同じ値のw×h深度マップを生成します。
func uniformDepth(w, h int, v float64) entity.DepthMap {
	values := make([][]float64, h)
	for y := range values {
		row := make([]float64, w)
		for x := range row {
			row[x] = v
		}
		values[y] = row
	}
	return entity.DepthMap{Values: values, Min: v, Max: v}
}
