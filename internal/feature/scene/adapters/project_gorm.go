package adapters

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"roomscene_backend/internal/feature/scene/domain/entity"
	"roomscene_backend/internal/feature/scene/usecase"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATEです。
const pgUniqueViolation = "23505"

// projectGorm はProjectRepositoryインターフェースのGORM実装です。
type projectGorm struct {
	db *gorm.DB
}

// projectGormがProjectRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.ProjectRepository = (*projectGorm)(nil)

// NewProjectRepository は指定されたgorm.DB接続でprojectGormの新しいインスタンスを生成します。
func NewProjectRepository(db *gorm.DB) *projectGorm {
	return &projectGorm{db: db}
}

// Create はプロジェクトを追加します。
// 同じIDのプロジェクトが既に存在する場合、usecase.ErrProjectExistsを返します。
func (r *projectGorm) Create(ctx context.Context, p *entity.Project) error {
	m := toProjectModel(p)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKey(err) {
			return usecase.ErrProjectExists
		}
		return err
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return nil
}

// UpdateStatus は processing のプロジェクトのみを更新する条件付き書き込みです。
// 対象行が存在しない場合は usecase.ErrProjectNotFound、既に終端状態の場合は usecase.ErrInvalidTransition を返します。
func (r *projectGorm) UpdateStatus(ctx context.Context, id string, status entity.ProjectStatus) error {
	if !entity.StatusProcessing.CanTransitionTo(status) {
		return fmt.Errorf("%w: processing -> %s", usecase.ErrInvalidTransition, status)
	}

	res := r.db.WithContext(ctx).
		Model(&ProjectModel{}).
		Where("id = ? AND status = ?", id, string(entity.StatusProcessing)).
		Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current ProjectModel
	if err := r.db.WithContext(ctx).Select("status").Where("id = ?", id).First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return usecase.ErrProjectNotFound
		}
		return err
	}
	return fmt.Errorf("%w: %s -> %s", usecase.ErrInvalidTransition, current.Status, status)
}

// FindByID はIDでプロジェクトを取得します。
func (r *projectGorm) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var m ProjectModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrProjectNotFound
		}
		return nil, err
	}
	p := toProjectEntity(m)
	return &p, nil
}

// ListByUser はユーザーのプロジェクトを作成日時の新しい順に返します。
func (r *projectGorm) ListByUser(ctx context.Context, userID uint) ([]entity.Project, error) {
	var rows []ProjectModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Project, 0, len(rows))
	for _, m := range rows {
		out = append(out, toProjectEntity(m))
	}
	return out, nil
}

func toProjectModel(p *entity.Project) ProjectModel {
	return ProjectModel{
		ID:        p.ID,
		UserID:    p.UserID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func toProjectEntity(m ProjectModel) entity.Project {
	return entity.Project{
		ID:        m.ID,
		UserID:    m.UserID,
		Name:      m.Name,
		ImageURL:  m.ImageURL,
		Status:    entity.ProjectStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// isDuplicateKey は一意制約違反かどうかを判定します。
// TranslateErrorが有効な接続ではgorm.ErrDuplicatedKeyに変換されます。
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
