package model

import (
	"time"

	"github.com/google/uuid"
)

// Task represents an action item, optionally assigned to a user and attached
// to any number of meetings through MeetingTask.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	AssigneeID  *uuid.UUID `gorm:"type:text;index" json:"assignee_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Completed   bool       `gorm:"default:false;index" json:"completed"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MeetingTask links a task to a meeting.
type MeetingTask struct {
	MeetingID uint `gorm:"primaryKey;index:ix_meeting_task_meeting_id"`
	TaskID    uint `gorm:"primaryKey;index:ix_meeting_task_task_id"`
}

// MeetingAttendee links a user to a meeting.
type MeetingAttendee struct {
	MeetingID uint      `gorm:"primaryKey;index:ix_meeting_attendee_meeting_id"`
	UserID    uuid.UUID `gorm:"type:text;primaryKey;index:ix_meeting_attendee_user_id"`
}
