package repository

import (
	"context"
	"errors"
	"fmt"

	"opsconsole/internal/apperror"
	"opsconsole/internal/database"
	"opsconsole/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PageSize is the fixed number of rows returned per list page.
const PageSize = 100

type ListFilter struct {
	Status model.Status // empty for all
	Page   int
}

func (f ListFilter) offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * PageSize
}

// EntityRepository is the storage contract shared by the four reviewable kinds.
type EntityRepository[T any] interface {
	Create(ctx context.Context, entity *T) error
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindPendingByID(ctx context.Context, id uuid.UUID) (*T, error)
	List(ctx context.Context, filter ListFilter) ([]T, int64, error)
	// UpdateStatus moves a pending row to status. A row that is gone or already
	// decided yields apperror.ErrNotFound and is left untouched.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, extra map[string]interface{}) (*T, error)
	// UpdatePendingFields writes fields on a row only while it is still pending.
	UpdatePendingFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type entityRepository[T any] struct {
	db   *gorm.DB
	kind model.Kind
}

func NewEntityRepository[T any](db *gorm.DB, kind model.Kind) EntityRepository[T] {
	return &entityRepository[T]{db: db, kind: kind}
}

func (r *entityRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := GetDB(ctx, r.db).Create(entity).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("%s: %w", r.kind, apperror.ErrDuplicate)
		}
		return fmt.Errorf("failed to create %s: %w", r.kind, err)
	}
	return nil
}

func (r *entityRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := GetDB(ctx, r.db).First(&entity, "id = ?", id).Error; err != nil {
		return nil, r.notFound(err, id)
	}
	return &entity, nil
}

func (r *entityRepository[T]) FindPendingByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	err := GetDB(ctx, r.db).
		Where("id = ? AND status = ?", id, model.StatusPending).
		First(&entity).Error
	if err != nil {
		return nil, r.notFound(err, id)
	}
	return &entity, nil
}

func (r *entityRepository[T]) List(ctx context.Context, filter ListFilter) ([]T, int64, error) {
	var total int64
	query := GetDB(ctx, r.db).Model(new(T))
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count %s: %w", r.kind, err)
	}

	items := make([]T, 0)
	fetch := GetDB(ctx, r.db)
	if filter.Status != "" {
		fetch = fetch.Where("status = ?", filter.Status)
	}
	if err := fetch.
		Order("created_at DESC").
		Offset(filter.offset()).
		Limit(PageSize).
		Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", r.kind, err)
	}
	return items, total, nil
}

func (r *entityRepository[T]) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status, extra map[string]interface{}) (*T, error) {
	if !status.IsDecision() {
		return nil, apperror.NewValidation("status", "must be approved or rejected")
	}

	updates := map[string]interface{}{"status": status}
	for k, v := range extra {
		updates[k] = v
	}
	if err := r.updatePending(ctx, id, updates); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *entityRepository[T]) UpdatePendingFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	if _, ok := fields["status"]; ok {
		return fmt.Errorf("%s: status is changed through UpdateStatus only", r.kind)
	}
	return r.updatePending(ctx, id, fields)
}

func (r *entityRepository[T]) updatePending(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	res := GetDB(ctx, r.db).
		Model(new(T)).
		Where("id = ? AND status = ?", id, model.StatusPending).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update %s: %w", r.kind, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s is not pending: %w", r.kind, id, apperror.ErrNotFound)
	}
	return nil
}

func (r *entityRepository[T]) notFound(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", r.kind, id, apperror.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", r.kind, err)
}
