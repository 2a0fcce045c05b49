package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meeting-planner/internal/model"
)

// UserRepository handles CRUD for users.
type UserRepository struct {
	base[model.User]
}

var _ Repository[model.User] = (*UserRepository)(nil)

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{base: newBase[model.User](db, "user")}
}

// ErrTelegramLinked is returned when the user is already linked to another
// chat.
var ErrTelegramLinked = errors.New("user is linked to another chat")

// LinkTelegram stores the Telegram chat of the user with the given email. A
// user linked to a different chat is left untouched.
func (r *UserRepository) LinkTelegram(ctx context.Context, email string, telegramID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return fmt.Errorf("find user: %w", err)
		}
		if user.TelegramID != nil {
			if *user.TelegramID != telegramID {
				return ErrTelegramLinked
			}
			return nil
		}
		// A chat belongs to one user at a time.
		if err := tx.Model(&model.User{}).Where("telegram_id = ? AND id <> ?", telegramID, user.ID).
			Update("telegram_id", nil).Error; err != nil {
			return fmt.Errorf("unlink previous user: %w", err)
		}
		if err := tx.Model(&user).Update("telegram_id", telegramID).Error; err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.TelegramID = &telegramID
	return &user, nil
}

func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// ListLinked returns the users that can be reached on Telegram.
func (r *UserRepository) ListLinked(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_id IS NOT NULL").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list linked users: %w", err)
	}
	return users, nil
}

// DeleteWithLinks removes a user, its attendances, and unassigns its tasks.
func (r *UserRepository) DeleteWithLinks(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.MeetingAttendee{}, "user_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete attendances: %w", err)
		}
		if err := tx.Model(&model.Task{}).Where("assignee_id = ?", id).
			Update("assignee_id", nil).Error; err != nil {
			return fmt.Errorf("unassign tasks: %w", err)
		}
		res := tx.Delete(&model.User{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
