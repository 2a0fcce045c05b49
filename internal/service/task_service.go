package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
	"meeting-planner/internal/repository"
)

// TaskInput represents data required to create a task.
type TaskInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *uuid.UUID `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	Completed   bool       `json:"completed"`
	MeetingIDs  []uint     `json:"meeting_ids"`
}

func (in TaskInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return apperr.Validation("title is required")
	}
	return nil
}

// TaskUpdate changes the fields that are set. ClearAssignee unassigns the
// task, which a nil AssigneeID cannot express.
type TaskUpdate struct {
	Title         *string    `json:"title"`
	Description   *string    `json:"description"`
	AssigneeID    *uuid.UUID `json:"assignee_id"`
	ClearAssignee bool       `json:"clear_assignee"`
	DueDate       *time.Time `json:"due_date"`
	Completed     *bool      `json:"completed"`
}

// TaskService wraps task-related business logic.
type TaskService struct {
	store *repository.Store
}

func NewTaskService(store *repository.Store) *TaskService {
	return &TaskService{store: store}
}

func (s *TaskService) CreateTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	t, err := s.createTask(ctx, input)
	return t, apperr.Boundary("create task", err)
}

func (s *TaskService) createTask(ctx context.Context, input TaskInput) (*model.Task, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	task := model.Task{
		AssigneeID:  input.AssigneeID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Completed:   input.Completed,
		DueDate:     utcPtr(input.DueDate),
	}

	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if task.AssigneeID != nil {
			if err := requireUser(ctx, tx, *task.AssigneeID); err != nil {
				return err
			}
		}
		if err := tx.Tasks.Create(ctx, &task); err != nil {
			return err
		}
		for _, meetingID := range input.MeetingIDs {
			if _, err := tx.Meetings.Get(ctx, meetingID); err != nil {
				if isNotFound(err) {
					return apperr.NotFound("Meeting with ID %d not found", meetingID)
				}
				return err
			}
			if err := tx.Meetings.LinkTask(ctx, meetingID, task.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) GetTask(ctx context.Context, id uint) (*model.Task, error) {
	t, err := s.getTask(ctx, id)
	return t, apperr.Boundary("get task", err)
}

func (s *TaskService) ListTasks(ctx context.Context, skip, limit int) ([]model.Task, error) {
	skip, limit = page(skip, limit)
	tasks, err := s.store.Tasks.List(ctx, skip, limit)
	return tasks, apperr.Boundary("list tasks", err)
}

func (s *TaskService) UpdateTask(ctx context.Context, id uint, update TaskUpdate) (*model.Task, error) {
	t, err := s.updateTask(ctx, id, update)
	return t, apperr.Boundary("update task", err)
}

func (s *TaskService) updateTask(ctx context.Context, id uint, update TaskUpdate) (*model.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Title != nil {
		if strings.TrimSpace(*update.Title) == "" {
			return nil, apperr.Validation("title is required")
		}
		task.Title = strings.TrimSpace(*update.Title)
	}
	if update.Description != nil {
		task.Description = *update.Description
	}
	switch {
	case update.ClearAssignee:
		task.AssigneeID = nil
	case update.AssigneeID != nil:
		if err := requireUser(ctx, s.store, *update.AssigneeID); err != nil {
			return nil, err
		}
		assignee := *update.AssigneeID
		task.AssigneeID = &assignee
	}
	if update.DueDate != nil {
		task.DueDate = utcPtr(update.DueDate)
	}
	if update.Completed != nil {
		task.Completed = *update.Completed
	}
	if err := s.store.Tasks.Update(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// DeleteTask removes a task and detaches it from every meeting.
func (s *TaskService) DeleteTask(ctx context.Context, id uint) error {
	deleted, err := s.store.Tasks.DeleteWithLinks(ctx, id)
	if err != nil {
		return apperr.Boundary("delete task", err)
	}
	if !deleted {
		return apperr.NotFound("Task with ID %d not found", id)
	}
	return nil
}

// ListUnassigned returns the tasks nobody is assigned to.
func (s *TaskService) ListUnassigned(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.store.Tasks.GetByField(ctx, "assignee_id", nil)
	return tasks, apperr.Boundary("list unassigned tasks", err)
}

func (s *TaskService) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Task, error) {
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, apperr.Boundary("list tasks by user", err)
	}
	tasks, err := s.store.Tasks.ListByAssignee(ctx, userID)
	return tasks, apperr.Boundary("list tasks by user", err)
}

func (s *TaskService) ListByMeeting(ctx context.Context, meetingID uint) ([]model.Task, error) {
	if _, err := s.store.Meetings.Get(ctx, meetingID); err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Meeting with ID %d not found", meetingID)
		}
		return nil, apperr.Boundary("list tasks by meeting", err)
	}
	tasks, err := s.store.Tasks.ListByMeeting(ctx, meetingID)
	return tasks, apperr.Boundary("list tasks by meeting", err)
}

// MarkTaskComplete sets the completed flag of a task.
func (s *TaskService) MarkTaskComplete(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, apperr.Boundary("complete task", err)
	}
	if err := s.store.Tasks.MarkCompleted(ctx, task); err != nil {
		return nil, apperr.Boundary("complete task", err)
	}
	return task, nil
}

// ReassignTasksToMeeting moves the incomplete tasks of one meeting to another
// and reports how many were moved. Completed tasks stay where they are.
func (s *TaskService) ReassignTasksToMeeting(ctx context.Context, sourceMeetingID, targetMeetingID uint) (int, error) {
	var moved int
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		tasks, err := tx.Tasks.ListIncompleteByMeeting(ctx, sourceMeetingID)
		if err != nil {
			return err
		}
		if len(tasks) == 0 {
			return nil
		}
		ids := make([]uint, 0, len(tasks))
		for _, t := range tasks {
			ids = append(ids, t.ID)
		}
		if err := tx.Tasks.ReassignToMeeting(ctx, ids, sourceMeetingID, targetMeetingID); err != nil {
			return err
		}
		moved = len(ids)
		return nil
	})
	if err != nil {
		return 0, apperr.Boundary("reassign tasks", err)
	}
	log.Infof("moved %d open tasks from meeting %d to meeting %d", moved, sourceMeetingID, targetMeetingID)
	return moved, nil
}

func (s *TaskService) getTask(ctx context.Context, id uint) (*model.Task, error) {
	task, err := s.store.Tasks.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Task with ID %d not found", id)
		}
		return nil, err
	}
	return task, nil
}

func requireUser(ctx context.Context, store *repository.Store, id uuid.UUID) error {
	if _, err := store.Users.Get(ctx, id); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("User with ID %s not found", id)
		}
		return err
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
