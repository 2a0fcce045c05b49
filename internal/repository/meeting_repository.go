package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meeting-planner/internal/model"
)

// MeetingRepository handles meetings and their attendee and task links.
type MeetingRepository struct {
	base[model.Meeting]
}

var _ Repository[model.Meeting] = (*MeetingRepository)(nil)

func NewMeetingRepository(db *gorm.DB) *MeetingRepository {
	return &MeetingRepository{base: newBase[model.Meeting](db, "meeting")}
}

// GetWithRecurrence loads a meeting with its recurrence attached.
func (r *MeetingRepository) GetWithRecurrence(ctx context.Context, id uint) (*model.Meeting, error) {
	var meeting model.Meeting
	if err := r.db.WithContext(ctx).Preload("Recurrence").First(&meeting, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return &meeting, nil
}

// ListWithRecurrence returns a page of meetings ordered by start date.
func (r *MeetingRepository) ListWithRecurrence(ctx context.Context, skip, limit int) ([]model.Meeting, error) {
	var meetings []model.Meeting
	q := r.db.WithContext(ctx).Preload("Recurrence").Order("start_date ASC, id ASC").Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("list meetings: %w", err)
	}
	return meetings, nil
}

// FindInSeriesAfter returns meetings of a series starting strictly after
// after, earliest first.
func (r *MeetingRepository) FindInSeriesAfter(ctx context.Context, recurrenceID uint, after time.Time, skip, limit int) ([]model.Meeting, error) {
	var meetings []model.Meeting
	q := r.db.WithContext(ctx).Preload("Recurrence").
		Where("recurrence_id = ? AND start_date > ?", recurrenceID, after.UTC()).
		Order("start_date ASC, id ASC").
		Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("find meetings in series: %w", err)
	}
	return meetings, nil
}

// ListBySeries returns every meeting of a series, earliest first.
func (r *MeetingRepository) ListBySeries(ctx context.Context, recurrenceID uint) ([]model.Meeting, error) {
	var meetings []model.Meeting
	if err := r.db.WithContext(ctx).Where("recurrence_id = ?", recurrenceID).
		Order("start_date ASC, id ASC").Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("list meetings in series: %w", err)
	}
	return meetings, nil
}

// CreateBatch inserts all meetings in one statement.
func (r *MeetingRepository) CreateBatch(ctx context.Context, meetings []model.Meeting) error {
	if len(meetings) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&meetings).Error; err != nil {
		return fmt.Errorf("create meetings: %w", err)
	}
	return nil
}

// ListByUser returns the meetings a user attends, earliest first.
func (r *MeetingRepository) ListByUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]model.Meeting, error) {
	var meetings []model.Meeting
	q := r.db.WithContext(ctx).Preload("Recurrence").
		Joins("JOIN meeting_attendees ON meeting_attendees.meeting_id = meetings.id").
		Where("meeting_attendees.user_id = ?", userID).
		Order("meetings.start_date ASC, meetings.id ASC").
		Offset(skip)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("list meetings by user: %w", err)
	}
	return meetings, nil
}

// ListByUserBetween returns the meetings a user attends that start in [from, to].
func (r *MeetingRepository) ListByUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]model.Meeting, error) {
	var meetings []model.Meeting
	if err := r.db.WithContext(ctx).
		Joins("JOIN meeting_attendees ON meeting_attendees.meeting_id = meetings.id").
		Where("meeting_attendees.user_id = ? AND meetings.start_date >= ? AND meetings.start_date <= ?", userID, from.UTC(), to.UTC()).
		Order("meetings.start_date ASC").
		Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("list meetings by user: %w", err)
	}
	return meetings, nil
}

// ListPendingReminders returns open meetings that start in [from, to] and
// have not been announced yet.
func (r *MeetingRepository) ListPendingReminders(ctx context.Context, from, to time.Time) ([]model.Meeting, error) {
	var meetings []model.Meeting
	if err := r.db.WithContext(ctx).
		Where("completed = ? AND reminder_sent = ? AND start_date >= ? AND start_date <= ?", false, false, from.UTC(), to.UTC()).
		Order("start_date ASC").
		Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("list pending reminders: %w", err)
	}
	return meetings, nil
}

func (r *MeetingRepository) MarkReminderSent(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.Meeting{}).Where("id = ?", id).
		Update("reminder_sent", true).Error; err != nil {
		return fmt.Errorf("mark reminder sent: %w", err)
	}
	return nil
}

// DeleteWithLinks removes a meeting together with its attendee and task links.
func (r *MeetingRepository) DeleteWithLinks(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.MeetingAttendee{}, "meeting_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete attendees: %w", err)
		}
		if err := tx.Delete(&model.MeetingTask{}, "meeting_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete task links: %w", err)
		}
		res := tx.Delete(&model.Meeting{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete meeting: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}

// AddAttendee links a user to a meeting; linking twice is a no-op.
func (r *MeetingRepository) AddAttendee(ctx context.Context, meetingID uint, userID uuid.UUID) error {
	link := model.MeetingAttendee{MeetingID: meetingID, UserID: userID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("add attendee: %w", err)
	}
	return nil
}

// RemoveAttendee reports whether the link existed.
func (r *MeetingRepository) RemoveAttendee(ctx context.Context, meetingID uint, userID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.MeetingAttendee{}, "meeting_id = ? AND user_id = ?", meetingID, userID)
	if res.Error != nil {
		return false, fmt.Errorf("remove attendee: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *MeetingRepository) ListAttendees(ctx context.Context, meetingID uint) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Joins("JOIN meeting_attendees ON meeting_attendees.user_id = users.id").
		Where("meeting_attendees.meeting_id = ?", meetingID).
		Order("users.email ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return users, nil
}

// LinkTask attaches a task to a meeting; linking twice is a no-op.
func (r *MeetingRepository) LinkTask(ctx context.Context, meetingID, taskID uint) error {
	link := model.MeetingTask{MeetingID: meetingID, TaskID: taskID}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
		return fmt.Errorf("link task: %w", err)
	}
	return nil
}

// UnlinkTask reports whether the link existed.
func (r *MeetingRepository) UnlinkTask(ctx context.Context, meetingID, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.MeetingTask{}, "meeting_id = ? AND task_id = ?", meetingID, taskID)
	if res.Error != nil {
		return false, fmt.Errorf("unlink task: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}
