package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one database handle, so that a
// service can run several of them inside a single transaction.
type Store struct {
	db          *gorm.DB
	Meetings    *MeetingRepository
	Recurrences *RecurrenceRepository
	Tasks       *TaskRepository
	Users       *UserRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Meetings:    NewMeetingRepository(db),
		Recurrences: NewRecurrenceRepository(db),
		Tasks:       NewTaskRepository(db),
		Users:       NewUserRepository(db),
	}
}

// Transaction runs fn with a Store bound to one transaction. The transaction
// commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
