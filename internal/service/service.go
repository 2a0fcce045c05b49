// Package service holds the planner's business logic. Public methods return
// apperr errors, or a generic apperr.ValidationError for anything unexpected.
package service

import (
	"errors"

	"gorm.io/gorm"
)

// isNotFound reports whether a repository error means the row is missing.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// page clamps pagination arguments coming from callers.
func page(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return skip, limit
}
