package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meeting-planner/internal/model"
)

// TaskRepository handles CRUD for tasks and their meeting links.
type TaskRepository struct {
	base[model.Task]
}

var _ Repository[model.Task] = (*TaskRepository)(nil)

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{base: newBase[model.Task](db, "task")}
}

func (r *TaskRepository) MarkCompleted(ctx context.Context, task *model.Task) error {
	task.Completed = true
	if err := r.db.WithContext(ctx).Save(task).Error; err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	return nil
}

func (r *TaskRepository) ListByMeeting(ctx context.Context, meetingID uint) ([]model.Task, error) {
	return r.listByMeeting(ctx, meetingID, false)
}

// ListIncompleteByMeeting returns the open tasks attached to a meeting.
func (r *TaskRepository) ListIncompleteByMeeting(ctx context.Context, meetingID uint) ([]model.Task, error) {
	return r.listByMeeting(ctx, meetingID, true)
}

func (r *TaskRepository) listByMeeting(ctx context.Context, meetingID uint, onlyOpen bool) ([]model.Task, error) {
	var tasks []model.Task
	q := r.db.WithContext(ctx).
		Joins("JOIN meeting_tasks ON meeting_tasks.task_id = tasks.id").
		Where("meeting_tasks.meeting_id = ?", meetingID)
	if onlyOpen {
		q = q.Where("tasks.completed = ?", false)
	}
	if err := q.Order("tasks.id ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks by meeting: %w", err)
	}
	return tasks, nil
}

func (r *TaskRepository) ListByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]model.Task, error) {
	return r.GetByField(ctx, "assignee_id", assigneeID)
}

// ListOpenByAssignee returns the user's incomplete tasks, those with the
// nearest due date first.
func (r *TaskRepository) ListOpenByAssignee(ctx context.Context, assigneeID uuid.UUID) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("assignee_id = ? AND completed = ?", assigneeID, false).
		Order("due_date NULLS LAST, created_at DESC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	return tasks, nil
}

// ReassignToMeeting moves the links of the given tasks from source to target
// in one transaction. A task already linked to target keeps a single link.
func (r *TaskRepository) ReassignToMeeting(ctx context.Context, taskIDs []uint, sourceMeetingID, targetMeetingID uint) error {
	if len(taskIDs) == 0 || sourceMeetingID == targetMeetingID {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.MeetingTask{}, "meeting_id = ? AND task_id IN ?", targetMeetingID, taskIDs).Error; err != nil {
			return fmt.Errorf("clear target links: %w", err)
		}
		if err := tx.Model(&model.MeetingTask{}).
			Where("meeting_id = ? AND task_id IN ?", sourceMeetingID, taskIDs).
			Update("meeting_id", targetMeetingID).Error; err != nil {
			return fmt.Errorf("reassign tasks: %w", err)
		}
		return nil
	})
}

// DeleteWithLinks removes a task together with its meeting links.
func (r *TaskRepository) DeleteWithLinks(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&model.MeetingTask{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("delete task links: %w", err)
		}
		res := tx.Delete(&model.Task{}, "id = ?", id)
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	return deleted, err
}
