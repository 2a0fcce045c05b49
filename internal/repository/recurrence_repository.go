package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"meeting-planner/internal/model"
)

// RecurrenceRepository manages recurrence series.
type RecurrenceRepository struct {
	base[model.Recurrence]
}

var _ Repository[model.Recurrence] = (*RecurrenceRepository)(nil)

func NewRecurrenceRepository(db *gorm.DB) *RecurrenceRepository {
	return &RecurrenceRepository{base: newBase[model.Recurrence](db, "recurrence")}
}

// Exists reports whether a recurrence with the id is stored.
func (r *RecurrenceRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Recurrence{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("find recurrence: %w", err)
	}
	return count > 0, nil
}

// DeleteDetaching removes a recurrence and clears the reference held by its
// meetings. The meetings themselves are kept.
func (r *RecurrenceRepository) DeleteDetaching(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Meeting{}).Where("recurrence_id = ?", id).
			Update("recurrence_id", nil).Error; err != nil {
			return fmt.Errorf("detach meetings: %w", err)
		}
		res := tx.Delete(&model.Recurrence{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete recurrence: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
