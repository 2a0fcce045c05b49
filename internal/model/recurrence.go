package model

import "time"

// Recurrence groups meetings into a series driven by an iCalendar RRULE.
// Meetings point at it through Meeting.RecurrenceID; it keeps no list of them.
type Recurrence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	RRule     string    `gorm:"column:rrule;index" json:"rrule"`
	Title     string    `gorm:"default:''" json:"title"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}
