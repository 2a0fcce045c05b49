package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/events"
	"meeting-planner/internal/model"
	"meeting-planner/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := repository.NewDB(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return repository.NewStore(db)
}

func createRecurrence(t *testing.T, store *repository.Store, rule, title string) *model.Recurrence {
	t.Helper()
	rec, err := NewRecurrenceService(store).Create(context.Background(), RecurrenceInput{RRule: rule, Title: title})
	if err != nil {
		t.Fatalf("create recurrence: %v", err)
	}
	return rec
}

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse time %q: %v", value, err)
	}
	return ts
}

func TestCreateWithRecurrence(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()
	rec := createRecurrence(t, store, "FREQ=WEEKLY", "Standup")

	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{
		StartDate:    mustTime(t, "2024-06-24T14:00:00+02:00"),
		RecurrenceID: &rec.ID,
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	if m.Title != "Standup on 2024-06-24" {
		t.Errorf("unexpected title %q", m.Title)
	}
	if m.StartDate.Location() != time.UTC || m.StartDate.Hour() != 12 {
		t.Errorf("expected start in UTC at 12:00, got %s", m.StartDate)
	}
	if m.Duration != model.DefaultDuration {
		t.Errorf("expected default duration, got %d", m.Duration)
	}
	if m.Recurrence == nil || m.Recurrence.ID != rec.ID {
		t.Errorf("expected recurrence to be attached, got %+v", m.Recurrence)
	}

	missing := uint(999)
	_, err = svc.CreateWithRecurrence(ctx, MeetingInput{StartDate: time.Now(), RecurrenceID: &missing})
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found for unknown recurrence, got %v", err)
	}

	if _, err := svc.CreateWithRecurrence(ctx, MeetingInput{Title: "no start"}); err == nil {
		t.Errorf("expected validation error without start date")
	}
}

func TestCompleteMeeting(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()

	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{Title: "Review", StartDate: mustTime(t, "2024-03-01T10:00:00Z")})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	for i := 0; i < 2; i++ {
		done, err := svc.CompleteMeeting(ctx, m.ID)
		if err != nil {
			t.Fatalf("complete meeting (call %d): %v", i+1, err)
		}
		if !done.Completed {
			t.Errorf("expected meeting to be completed")
		}
	}

	var nf *apperr.NotFoundError
	if _, err := svc.CompleteMeeting(ctx, 12345); !errors.As(err, &nf) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGetSubsequentMeeting(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()

	plain, err := svc.CreateWithRecurrence(ctx, MeetingInput{Title: "One-off", StartDate: mustTime(t, "2024-06-24T12:00:00Z")})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	var ve *apperr.ValidationError
	if _, err := svc.GetSubsequentMeeting(ctx, plain.ID, plain.StartDate); !errors.As(err, &ve) {
		t.Fatalf("expected validation error without recurrence, got %v", err)
	}

	rec := createRecurrence(t, store, "FREQ=YEARLY", "Anniversary")
	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{
		StartDate:    mustTime(t, "2024-06-24T12:00:00Z"),
		EndDate:      ptrTime(mustTime(t, "2024-06-24T13:00:00Z")),
		Location:     "Room 1",
		RecurrenceID: &rec.ID,
	})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	next, err := svc.GetSubsequentMeeting(ctx, m.ID, m.StartDate)
	if err != nil {
		t.Fatalf("get subsequent meeting: %v", err)
	}
	want := mustTime(t, "2025-06-24T12:00:00Z")
	if !next.StartDate.Equal(want) {
		t.Errorf("expected next start %s, got %s", want, next.StartDate)
	}
	if next.EndDate == nil || next.EndDate.Sub(next.StartDate) != time.Hour {
		t.Errorf("expected the next meeting to keep a one hour span, got %v", next.EndDate)
	}
	if next.Location != "Room 1" || next.Title != "Anniversary on 2024-06-24" {
		t.Errorf("expected fields copied from the source meeting, got %+v", next)
	}

	again, err := svc.GetSubsequentMeeting(ctx, m.ID, m.StartDate)
	if err != nil {
		t.Fatalf("get subsequent meeting again: %v", err)
	}
	if again.ID != next.ID {
		t.Errorf("expected the existing meeting %d to be returned, got %d", next.ID, again.ID)
	}

	extra, err := svc.CreateSubsequentMeeting(ctx, m)
	if err != nil {
		t.Fatalf("create subsequent meeting: %v", err)
	}
	if extra.ID == next.ID || !extra.StartDate.Equal(want) {
		t.Errorf("expected a fresh meeting at %s, got %+v", want, extra)
	}
}

func TestCreateSubsequentMeetingExhaustedRule(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()
	rec := createRecurrence(t, store, "FREQ=DAILY;COUNT=1", "Kickoff")

	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{StartDate: mustTime(t, "2024-01-01T09:00:00Z"), RecurrenceID: &rec.ID})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	_, err = svc.CreateSubsequentMeeting(ctx, m)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Detail != "No future dates found in the recurrence rule" {
		t.Errorf("expected exhausted rule error, got %v", err)
	}
}

func TestBatchCreateWithRecurrence(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()
	rec := createRecurrence(t, store, "FREQ=WEEKLY;BYDAY=MO", "Planning")

	_, err := svc.BatchCreateWithRecurrence(ctx, rec.ID, MeetingInput{}, nil)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) || ve.Detail != "No meetings created" {
		t.Fatalf("expected no meetings created, got %v", err)
	}

	var nf *apperr.NotFoundError
	if _, err := svc.BatchCreateWithRecurrence(ctx, 404, MeetingInput{}, []time.Time{time.Now()}); !errors.As(err, &nf) {
		t.Fatalf("expected not found for unknown recurrence, got %v", err)
	}

	dates := []time.Time{mustTime(t, "2024-07-01T09:00:00Z"), mustTime(t, "2024-07-08T09:00:00Z")}
	meetings, err := svc.BatchCreateWithRecurrence(ctx, rec.ID, MeetingInput{Duration: 45, Location: "HQ"}, dates)
	if err != nil {
		t.Fatalf("batch create: %v", err)
	}
	if len(meetings) != 2 {
		t.Fatalf("expected 2 meetings, got %d", len(meetings))
	}
	for i, m := range meetings {
		if m.ID == 0 {
			t.Errorf("meeting %d has no id", i)
		}
		if !m.StartDate.Equal(dates[i]) || m.EndDate == nil || m.EndDate.Sub(m.StartDate) != 45*time.Minute {
			t.Errorf("unexpected schedule for meeting %d: %s - %v", i, m.StartDate, m.EndDate)
		}
		if m.Title != "Planning on "+dates[i].Format("2006-01-02") {
			t.Errorf("unexpected title %q", m.Title)
		}
	}

	series, err := store.Meetings.ListBySeries(ctx, rec.ID)
	if err != nil {
		t.Fatalf("list series: %v", err)
	}
	if len(series) != 2 {
		t.Errorf("expected 2 stored meetings, got %d", len(series))
	}
}

func TestCompleteAndAdvance(t *testing.T) {
	store := newTestStore(t)
	broker := events.NewMemoryBroker()
	defer broker.Close()
	svc := NewMeetingService(store, broker)
	ctx := context.Background()

	sub, err := broker.Subscribe(ctx, events.ChannelMeetings)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	rec := createRecurrence(t, store, "FREQ=WEEKLY", "Sync")
	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{StartDate: mustTime(t, "2024-05-06T10:00:00Z"), RecurrenceID: &rec.ID})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	done, next, err := svc.CompleteAndAdvance(ctx, m.ID)
	if err != nil {
		t.Fatalf("complete and advance: %v", err)
	}
	if !done.Completed {
		t.Errorf("expected meeting to be completed")
	}
	if want := mustTime(t, "2024-05-13T10:00:00Z"); !next.StartDate.Equal(want) {
		t.Errorf("expected next meeting at %s, got %s", want, next.StartDate)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	msg, err := sub.Next(waitCtx)
	if err != nil {
		t.Fatalf("receive event: %v", err)
	}
	var ev events.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	var payload events.MeetingCompleted
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if ev.EventType != events.TypeComplete || ev.Model != "Meeting" {
		t.Errorf("unexpected envelope %+v", ev)
	}
	if payload.MeetingID == nil || *payload.MeetingID != m.ID || payload.NextMeetingID == nil || *payload.NextMeetingID != next.ID {
		t.Errorf("unexpected payload %s", ev.Payload)
	}
}

func TestCompleteAndAdvanceRollsBack(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, events.NewMemoryBroker())
	ctx := context.Background()

	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{Title: "Solo", StartDate: mustTime(t, "2024-05-06T10:00:00Z")})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	_, _, err = svc.CompleteAndAdvance(ctx, m.ID)
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}

	stored, err := svc.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("get meeting: %v", err)
	}
	if stored.Completed {
		t.Errorf("expected completion to be rolled back")
	}
}

func TestUpdateMeetingReschedules(t *testing.T) {
	store := newTestStore(t)
	svc := NewMeetingService(store, nil)
	ctx := context.Background()

	m, err := svc.CreateWithRecurrence(ctx, MeetingInput{Title: "1:1", StartDate: mustTime(t, "2024-02-01T15:00:00Z"), ReminderSent: true})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}

	moved := mustTime(t, "2024-02-02T15:00:00Z")
	location := "Cafe"
	updated, err := svc.Update(ctx, m.ID, MeetingUpdate{StartDate: &moved, Location: &location})
	if err != nil {
		t.Fatalf("update meeting: %v", err)
	}
	if updated.NumReschedules != 1 || updated.ReminderSent {
		t.Errorf("expected one reschedule and a re-armed reminder, got %+v", updated)
	}
	if updated.Location != "Cafe" || !updated.StartDate.Equal(moved) {
		t.Errorf("update not applied: %+v", updated)
	}

	missing := uint(77)
	var nf *apperr.NotFoundError
	if _, err := svc.Update(ctx, m.ID, MeetingUpdate{RecurrenceID: &missing}); !errors.As(err, &nf) {
		t.Errorf("expected not found for unknown recurrence, got %v", err)
	}

	if err := svc.Delete(ctx, m.ID); err != nil {
		t.Fatalf("delete meeting: %v", err)
	}
	if err := svc.Delete(ctx, m.ID); !errors.As(err, &nf) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestAttendeesAndTasks(t *testing.T) {
	store := newTestStore(t)
	meetings := NewMeetingService(store, nil)
	users := NewUserService(store)
	tasks := NewTaskService(store)
	ctx := context.Background()

	m, err := meetings.CreateWithRecurrence(ctx, MeetingInput{Title: "Retro", StartDate: mustTime(t, "2024-04-01T16:00:00Z")})
	if err != nil {
		t.Fatalf("create meeting: %v", err)
	}
	u, err := users.Create(ctx, UserInput{Email: "ada@example.com", FirstName: "Ada"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := meetings.AddAttendee(ctx, m.ID, u.ID); err != nil {
		t.Fatalf("add attendee: %v", err)
	}
	if err := meetings.AddAttendee(ctx, m.ID, u.ID); err != nil {
		t.Fatalf("add attendee twice: %v", err)
	}
	attendees, err := meetings.ListAttendees(ctx, m.ID)
	if err != nil || len(attendees) != 1 || attendees[0].ID != u.ID {
		t.Fatalf("unexpected attendees %+v (err=%v)", attendees, err)
	}
	byUser, err := meetings.ListByUser(ctx, u.ID, 0, 10)
	if err != nil || len(byUser) != 1 || byUser[0].ID != m.ID {
		t.Fatalf("unexpected meetings by user %+v (err=%v)", byUser, err)
	}

	task, err := tasks.CreateTask(ctx, TaskInput{Title: "Collect feedback"})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if err := meetings.LinkTask(ctx, m.ID, task.ID); err != nil {
		t.Fatalf("link task: %v", err)
	}
	linked, err := tasks.ListByMeeting(ctx, m.ID)
	if err != nil || len(linked) != 1 {
		t.Fatalf("unexpected linked tasks %+v (err=%v)", linked, err)
	}

	var nf *apperr.NotFoundError
	if err := meetings.LinkTask(ctx, m.ID, 999); !errors.As(err, &nf) {
		t.Errorf("expected not found for unknown task, got %v", err)
	}
	if err := meetings.UnlinkTask(ctx, m.ID, task.ID); err != nil {
		t.Errorf("unlink task: %v", err)
	}
	if err := meetings.RemoveAttendee(ctx, m.ID, u.ID); err != nil {
		t.Errorf("remove attendee: %v", err)
	}
	if err := meetings.RemoveAttendee(ctx, m.ID, u.ID); !errors.As(err, &nf) {
		t.Errorf("expected not found on second removal, got %v", err)
	}
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
