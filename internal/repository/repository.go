package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository is the data access every entity supports.
type Repository[T any] interface {
	Get(ctx context.Context, id any) (*T, error)
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id any) (bool, error)
	GetByField(ctx context.Context, field string, value any) ([]T, error)
}

// base implements Repository for a gorm model. Entity repositories embed it
// and add their own queries. Associations are never written through it.
type base[T any] struct {
	db   *gorm.DB
	name string
}

func newBase[T any](db *gorm.DB, name string) base[T] {
	return base[T]{db: db, name: name}
}

// Get returns gorm.ErrRecordNotFound (wrapped) when no row has the id.
func (r base[T]) Get(ctx context.Context, id any) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get %s: %w", r.name, err)
	}
	return &entity, nil
}

func (r base[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(entity).Error; err != nil {
		return fmt.Errorf("create %s: %w", r.name, err)
	}
	return nil
}

func (r base[T]) Update(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(entity).Error; err != nil {
		return fmt.Errorf("update %s: %w", r.name, err)
	}
	return nil
}

// Delete reports whether a row was removed.
func (r base[T]) Delete(ctx context.Context, id any) (bool, error) {
	res := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if res.Error != nil {
		return false, fmt.Errorf("delete %s: %w", r.name, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// GetByField returns every row whose column field equals value; a nil value
// matches NULL.
func (r base[T]) GetByField(ctx context.Context, field string, value any) ([]T, error) {
	var entities []T
	if err := r.db.WithContext(ctx).Where(map[string]any{field: value}).Order("id ASC").Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list %s by %s: %w", r.name, field, err)
	}
	return entities, nil
}

// List returns a page of rows ordered by id.
func (r base[T]) List(ctx context.Context, skip, limit int) ([]T, error) {
	var entities []T
	q := r.db.WithContext(ctx).Order("id ASC").Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", r.name, err)
	}
	return entities, nil
}
