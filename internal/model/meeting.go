package model

import (
	"fmt"
	"time"
)

// DefaultDuration is the meeting length in minutes used when none is given.
const DefaultDuration = 30

// Meeting is a single scheduled meeting, possibly one occurrence of a
// Recurrence series. Recurrence is only populated on reads that ask for it.
type Meeting struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	RecurrenceID   *uint       `gorm:"index:ix_meeting_recurrence_id" json:"recurrence_id"`
	Recurrence     *Recurrence `gorm:"foreignKey:RecurrenceID" json:"recurrence"`
	Title          string      `gorm:"size:100;default:''" json:"title"`
	StartDate      time.Time   `gorm:"index:ix_meeting_start_date" json:"start_date"`
	EndDate        *time.Time  `json:"end_date"`
	Duration       int         `gorm:"default:30" json:"duration"`
	Location       string      `gorm:"size:100;default:''" json:"location"`
	Notes          string      `json:"notes"`
	NumReschedules int         `gorm:"default:0" json:"num_reschedules"`
	ReminderSent   bool        `gorm:"default:false" json:"reminder_sent"`
	Completed      bool        `gorm:"default:false;index:ix_meeting_completed" json:"completed"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"-"`
}

// PrepareMeetingForSave must run before every insert or update of a meeting.
// Timestamps are stored in UTC, and an untitled meeting that belongs to a
// series is named after the series and its start date.
func PrepareMeetingForSave(m *Meeting, rec *Recurrence) {
	m.StartDate = m.StartDate.UTC()
	if m.EndDate != nil {
		end := m.EndDate.UTC()
		m.EndDate = &end
	}
	if m.Duration == 0 {
		m.Duration = DefaultDuration
	}
	if m.Title == "" && rec != nil {
		m.Title = fmt.Sprintf("%s on %s", rec.Title, m.StartDate.Format("2006-01-02"))
	}
}
