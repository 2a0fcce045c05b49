package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"meeting-planner/internal/model"
)

func TestBaseRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := model.Recurrence{RRule: "FREQ=WEEKLY", Title: "Weekly sync"}
	if err := store.Recurrences.Create(ctx, &rec); err != nil {
		t.Fatalf("create recurrence: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("expected recurrence ID to be set")
	}

	got, err := store.Recurrences.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("get recurrence: %v", err)
	}
	if got.Title != "Weekly sync" {
		t.Errorf("unexpected title %q", got.Title)
	}

	got.Title = "Weekly standup"
	if err := store.Recurrences.Update(ctx, got); err != nil {
		t.Fatalf("update recurrence: %v", err)
	}
	byTitle, err := store.Recurrences.GetByField(ctx, "title", "Weekly standup")
	if err != nil {
		t.Fatalf("get by field: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != rec.ID {
		t.Errorf("expected the updated recurrence, got %+v", byTitle)
	}

	deleted, err := store.Recurrences.Delete(ctx, rec.ID)
	if err != nil || !deleted {
		t.Fatalf("delete recurrence: %v (deleted=%v)", err, deleted)
	}
	if deleted, _ := store.Recurrences.Delete(ctx, rec.ID); deleted {
		t.Errorf("second delete reported a removed row")
	}
	if _, err := store.Recurrences.Get(ctx, rec.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected gorm.ErrRecordNotFound, got %v", err)
	}
}

func TestFindInSeriesAfter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := model.Recurrence{RRule: "FREQ=DAILY", Title: "Daily"}
	if err := store.Recurrences.Create(ctx, &rec); err != nil {
		t.Fatalf("create recurrence: %v", err)
	}
	other := model.Recurrence{RRule: "FREQ=DAILY", Title: "Other"}
	if err := store.Recurrences.Create(ctx, &other); err != nil {
		t.Fatalf("create recurrence: %v", err)
	}

	day := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, m := range []model.Meeting{
		{Title: "d3", StartDate: day.AddDate(0, 0, 3), RecurrenceID: &rec.ID},
		{Title: "d1", StartDate: day.AddDate(0, 0, 1), RecurrenceID: &rec.ID},
		{Title: "d0", StartDate: day, RecurrenceID: &rec.ID},
		{Title: "other", StartDate: day.AddDate(0, 0, 2), RecurrenceID: &other.ID},
		{Title: "loose", StartDate: day.AddDate(0, 0, 2)},
	} {
		m := m
		if err := store.Meetings.Create(ctx, &m); err != nil {
			t.Fatalf("create meeting: %v", err)
		}
	}

	found, err := store.Meetings.FindInSeriesAfter(ctx, rec.ID, day, 0, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(found))
	}
	if found[0].Title != "d1" || found[1].Title != "d3" {
		t.Errorf("unexpected order: %q, %q", found[0].Title, found[1].Title)
	}
	if found[0].Recurrence == nil || found[0].Recurrence.Title != "Daily" {
		t.Errorf("expected the recurrence to be attached, got %+v", found[0].Recurrence)
	}
}

func TestReassignToMeeting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	source := model.Meeting{Title: "source", StartDate: time.Now()}
	target := model.Meeting{Title: "target", StartDate: time.Now().Add(time.Hour)}
	for _, m := range []*model.Meeting{&source, &target} {
		if err := store.Meetings.Create(ctx, m); err != nil {
			t.Fatalf("create meeting: %v", err)
		}
	}

	open := model.Task{Title: "open"}
	done := model.Task{Title: "done", Completed: true}
	both := model.Task{Title: "linked to both"}
	for _, task := range []*model.Task{&open, &done, &both} {
		if err := store.Tasks.Create(ctx, task); err != nil {
			t.Fatalf("create task: %v", err)
		}
		if err := store.Meetings.LinkTask(ctx, source.ID, task.ID); err != nil {
			t.Fatalf("link task: %v", err)
		}
	}
	if err := store.Meetings.LinkTask(ctx, target.ID, both.ID); err != nil {
		t.Fatalf("link task: %v", err)
	}

	incomplete, err := store.Tasks.ListIncompleteByMeeting(ctx, source.ID)
	if err != nil {
		t.Fatalf("list incomplete: %v", err)
	}
	if len(incomplete) != 2 {
		t.Fatalf("expected 2 incomplete tasks, got %d", len(incomplete))
	}
	ids := []uint{incomplete[0].ID, incomplete[1].ID}
	if err := store.Tasks.ReassignToMeeting(ctx, ids, source.ID, target.ID); err != nil {
		t.Fatalf("reassign: %v", err)
	}

	left, err := store.Tasks.ListByMeeting(ctx, source.ID)
	if err != nil {
		t.Fatalf("list source tasks: %v", err)
	}
	if len(left) != 1 || left[0].ID != done.ID {
		t.Errorf("expected only the completed task to stay, got %+v", left)
	}
	moved, err := store.Tasks.ListByMeeting(ctx, target.ID)
	if err != nil {
		t.Fatalf("list target tasks: %v", err)
	}
	if len(moved) != 2 {
		t.Errorf("expected 2 tasks on the target meeting, got %d", len(moved))
	}
}

func TestUserDeleteWithLinks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := model.User{ID: uuid.New(), Email: "ada@example.com"}
	if err := store.Users.Create(ctx, &user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	meeting := model.Meeting{Title: "1:1", StartDate: time.Now()}
	if err := store.Meetings.Create(ctx, &meeting); err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if err := store.Meetings.AddAttendee(ctx, meeting.ID, user.ID); err != nil {
		t.Fatalf("add attendee: %v", err)
	}
	if err := store.Meetings.AddAttendee(ctx, meeting.ID, user.ID); err != nil {
		t.Fatalf("add attendee twice: %v", err)
	}
	task := model.Task{Title: "prepare", AssigneeID: &user.ID}
	if err := store.Tasks.Create(ctx, &task); err != nil {
		t.Fatalf("create task: %v", err)
	}

	attendees, err := store.Meetings.ListAttendees(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(attendees) != 1 || attendees[0].ID != user.ID {
		t.Fatalf("unexpected attendees: %+v", attendees)
	}

	deleted, err := store.Users.DeleteWithLinks(ctx, user.ID)
	if err != nil || !deleted {
		t.Fatalf("delete user: %v (deleted=%v)", err, deleted)
	}

	attendees, err = store.Meetings.ListAttendees(ctx, meeting.ID)
	if err != nil {
		t.Fatalf("list attendees: %v", err)
	}
	if len(attendees) != 0 {
		t.Errorf("expected no attendees, got %d", len(attendees))
	}
	reloaded, err := store.Tasks.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if reloaded.AssigneeID != nil {
		t.Errorf("expected task to be unassigned, got %v", reloaded.AssigneeID)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Tasks.Create(ctx, &model.Task{Title: "ghost"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	tasks, err := store.Tasks.List(ctx, 0, 0)
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected rollback, found %d tasks", len(tasks))
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}
