package service

import (
	"time"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
)

// MeetingInput is the data required to create a meeting.
type MeetingInput struct {
	Title          string     `json:"title"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Duration       int        `json:"duration"`
	Location       string     `json:"location"`
	Notes          string     `json:"notes"`
	NumReschedules int        `json:"num_reschedules"`
	ReminderSent   bool       `json:"reminder_sent"`
	Completed      bool       `json:"completed"`
	RecurrenceID   *uint      `json:"recurrence_id"`
}

// Validate checks a meeting to be created on its own start date.
func (in MeetingInput) Validate() error {
	if in.StartDate.IsZero() {
		return apperr.Validation("start_date is required")
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return apperr.Validation("end_date must not be before start_date")
	}
	return in.validateFields()
}

// validateFields checks everything but the schedule, which batch creation
// computes per date.
func (in MeetingInput) validateFields() error {
	if len(in.Title) > 100 {
		return apperr.Validation("title must be at most 100 characters")
	}
	if len(in.Location) > 100 {
		return apperr.Validation("location must be at most 100 characters")
	}
	if in.Duration < 0 {
		return apperr.Validation("duration must not be negative")
	}
	if in.NumReschedules < 0 {
		return apperr.Validation("num_reschedules must not be negative")
	}
	return nil
}

func (in MeetingInput) meeting() *model.Meeting {
	return &model.Meeting{
		Title:          in.Title,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		Duration:       in.Duration,
		Location:       in.Location,
		Notes:          in.Notes,
		NumReschedules: in.NumReschedules,
		ReminderSent:   in.ReminderSent,
		Completed:      in.Completed,
		RecurrenceID:   in.RecurrenceID,
	}
}

// MeetingUpdate changes the fields that are set.
type MeetingUpdate struct {
	Title          *string    `json:"title"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	Duration       *int       `json:"duration"`
	Location       *string    `json:"location"`
	Notes          *string    `json:"notes"`
	NumReschedules *int       `json:"num_reschedules"`
	ReminderSent   *bool      `json:"reminder_sent"`
	Completed      *bool      `json:"completed"`
	RecurrenceID   *uint      `json:"recurrence_id"`
}

// apply copies the set fields onto m. Moving the start counts as a
// reschedule unless the caller sets the counter, and re-arms the reminder.
func (u MeetingUpdate) apply(m *model.Meeting) error {
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.StartDate != nil && !u.StartDate.Equal(m.StartDate) {
		m.StartDate = *u.StartDate
		m.ReminderSent = false
		if u.NumReschedules == nil {
			m.NumReschedules++
		}
	}
	if u.EndDate != nil {
		end := *u.EndDate
		m.EndDate = &end
	}
	if u.Duration != nil {
		m.Duration = *u.Duration
	}
	if u.Location != nil {
		m.Location = *u.Location
	}
	if u.Notes != nil {
		m.Notes = *u.Notes
	}
	if u.NumReschedules != nil {
		m.NumReschedules = *u.NumReschedules
	}
	if u.ReminderSent != nil {
		m.ReminderSent = *u.ReminderSent
	}
	if u.Completed != nil {
		m.Completed = *u.Completed
	}
	if u.RecurrenceID != nil {
		id := *u.RecurrenceID
		m.RecurrenceID = &id
	}

	check := MeetingInput{
		Title:          m.Title,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		Duration:       m.Duration,
		Location:       m.Location,
		NumReschedules: m.NumReschedules,
	}
	return check.Validate()
}
