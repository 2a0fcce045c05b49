package model

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors an account owned by the user service. TelegramID is set once
// the user links a chat with the bot.
type User struct {
	ID         uuid.UUID `gorm:"type:text;primaryKey" json:"id"`
	Email      string    `gorm:"uniqueIndex" json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	TelegramID *int64    `gorm:"uniqueIndex" json:"telegram_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DisplayName returns the best human-readable name for the user.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.Email != "":
		return u.Email
	default:
		return u.ID.String()
	}
}
