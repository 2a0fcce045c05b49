package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/events"
	"meeting-planner/internal/model"
	"meeting-planner/internal/recurrence"
	"meeting-planner/internal/repository"
)

// MeetingService wraps meeting lifecycle logic: creation, completion and
// advancing a recurring series.
type MeetingService struct {
	store     *repository.Store
	publisher events.Publisher
}

// NewMeetingService builds the service. publisher may be nil, in which case
// completions are not announced.
func NewMeetingService(store *repository.Store, publisher events.Publisher) *MeetingService {
	return &MeetingService{store: store, publisher: publisher}
}

// withStore returns a copy of s bound to another store, usually a transaction.
func (s *MeetingService) withStore(store *repository.Store) *MeetingService {
	return &MeetingService{store: store, publisher: s.publisher}
}

func (s *MeetingService) CreateWithRecurrence(ctx context.Context, input MeetingInput) (*model.Meeting, error) {
	m, err := s.createWithRecurrence(ctx, input)
	return m, apperr.Boundary("create meeting", err)
}

func (s *MeetingService) createWithRecurrence(ctx context.Context, input MeetingInput) (*model.Meeting, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	log.Infof("creating meeting %q starting %s", input.Title, input.StartDate.Format(time.RFC3339))

	var rec *model.Recurrence
	if input.RecurrenceID != nil {
		var err error
		if rec, err = s.loadRecurrence(ctx, *input.RecurrenceID); err != nil {
			return nil, err
		}
	}

	meeting := input.meeting()
	model.PrepareMeetingForSave(meeting, rec)
	if err := s.store.Meetings.Create(ctx, meeting); err != nil {
		return nil, err
	}
	meeting.Recurrence = rec
	return meeting, nil
}

// CompleteMeeting marks a meeting as completed.
func (s *MeetingService) CompleteMeeting(ctx context.Context, id uint) (*model.Meeting, error) {
	m, err := s.completeMeeting(ctx, id)
	return m, apperr.Boundary("complete meeting", err)
}

func (s *MeetingService) completeMeeting(ctx context.Context, id uint) (*model.Meeting, error) {
	meeting, err := s.getMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	meeting.Completed = true
	if err := s.save(ctx, meeting); err != nil {
		return nil, err
	}
	log.Infof("meeting %d completed", id)
	return meeting, nil
}

// AddRecurrence attaches a recurrence to a meeting. The recurrence is not
// required to exist; a dangling reference is stored as given.
func (s *MeetingService) AddRecurrence(ctx context.Context, id, recurrenceID uint) (*model.Meeting, error) {
	m, err := s.addRecurrence(ctx, id, recurrenceID)
	return m, apperr.Boundary("add recurrence", err)
}

func (s *MeetingService) addRecurrence(ctx context.Context, id, recurrenceID uint) (*model.Meeting, error) {
	meeting, err := s.getMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	meeting.RecurrenceID = &recurrenceID
	meeting.Recurrence = nil
	if err := s.save(ctx, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

// GetSubsequentMeeting returns the earliest meeting of the same series that
// starts strictly after after, creating it from the rule when none exists.
// A zero after means the meeting's own start.
func (s *MeetingService) GetSubsequentMeeting(ctx context.Context, id uint, after time.Time) (*model.Meeting, error) {
	m, err := s.getSubsequentMeeting(ctx, id, after)
	return m, apperr.Boundary("get subsequent meeting", err)
}

func (s *MeetingService) getSubsequentMeeting(ctx context.Context, id uint, after time.Time) (*model.Meeting, error) {
	meeting, err := s.getMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if meeting.RecurrenceID == nil {
		return nil, apperr.Validation("Meeting %d does not have a recurrence set", id)
	}
	if after.IsZero() {
		after = meeting.StartDate
	}
	rec, err := s.loadRecurrence(ctx, *meeting.RecurrenceID)
	if err != nil {
		return nil, err
	}

	found, err := s.store.Meetings.FindInSeriesAfter(ctx, rec.ID, after, 0, 1)
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		next := found[0]
		next.Recurrence = rec
		return &next, nil
	}
	return s.createSubsequent(ctx, meeting, rec)
}

// CreateSubsequentMeeting creates the occurrence that follows meeting in its
// series. Nothing is looked up first, so calling it twice creates twice.
func (s *MeetingService) CreateSubsequentMeeting(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	m, err := s.createSubsequentMeeting(ctx, meeting)
	return m, apperr.Boundary("create subsequent meeting", err)
}

func (s *MeetingService) createSubsequentMeeting(ctx context.Context, meeting *model.Meeting) (*model.Meeting, error) {
	if meeting.RecurrenceID == nil {
		return nil, apperr.Validation("Meeting with ID %d does not have a recurrence set", meeting.ID)
	}
	rec, err := s.loadRecurrence(ctx, *meeting.RecurrenceID)
	if err != nil {
		return nil, err
	}
	return s.createSubsequent(ctx, meeting, rec)
}

func (s *MeetingService) createSubsequent(ctx context.Context, meeting *model.Meeting, rec *model.Recurrence) (*model.Meeting, error) {
	rule, err := recurrence.Parse(rec.RRule, meeting.StartDate)
	if err != nil {
		return nil, &apperr.ValidationError{Detail: "Error parsing recurrence rule: " + err.Error(), Cause: err}
	}
	start, ok := rule.Next(meeting.StartDate, false)
	if !ok {
		return nil, apperr.Validation("No future dates found in the recurrence rule")
	}

	var end *time.Time
	if meeting.EndDate != nil {
		e := start.Add(meeting.EndDate.Sub(meeting.StartDate))
		end = &e
	}
	recurrenceID := rec.ID
	next := &model.Meeting{
		RecurrenceID: &recurrenceID,
		Title:        meeting.Title,
		StartDate:    start,
		EndDate:      end,
		Duration:     meeting.Duration,
		Location:     meeting.Location,
		Notes:        meeting.Notes,
	}
	model.PrepareMeetingForSave(next, rec)
	if err := s.store.Meetings.Create(ctx, next); err != nil {
		return nil, err
	}
	next.Recurrence = rec
	log.Infof("created meeting %d in series %d at %s", next.ID, rec.ID, start.Format(time.RFC3339))
	return next, nil
}

// BatchCreateWithRecurrence creates one meeting per date in a single insert.
// Each meeting copies base and lasts its duration from the given date.
func (s *MeetingService) BatchCreateWithRecurrence(ctx context.Context, recurrenceID uint, base MeetingInput, dates []time.Time) ([]model.Meeting, error) {
	ms, err := s.batchCreate(ctx, recurrenceID, base, dates)
	return ms, apperr.Boundary("batch create meetings", err)
}

func (s *MeetingService) batchCreate(ctx context.Context, recurrenceID uint, base MeetingInput, dates []time.Time) ([]model.Meeting, error) {
	if err := base.validateFields(); err != nil {
		return nil, err
	}
	rec, err := s.loadRecurrence(ctx, recurrenceID)
	if err != nil {
		return nil, err
	}

	meetings := make([]model.Meeting, 0, len(dates))
	for _, date := range dates {
		m := base.meeting()
		m.RecurrenceID = &recurrenceID
		m.StartDate = date
		model.PrepareMeetingForSave(m, rec)
		end := m.StartDate.Add(time.Duration(m.Duration) * time.Minute)
		m.EndDate = &end
		meetings = append(meetings, *m)
	}
	if len(meetings) == 0 {
		return nil, apperr.Validation("No meetings created")
	}
	if err := s.store.Meetings.CreateBatch(ctx, meetings); err != nil {
		return nil, err
	}
	for i := range meetings {
		meetings[i].Recurrence = rec
	}
	log.Infof("created %d meetings in series %d", len(meetings), recurrenceID)
	return meetings, nil
}

// CompleteAndAdvance completes a meeting and resolves the next one in its
// series in one transaction, then announces both ids on the meetings channel.
// A failed announcement is logged and does not undo the completion.
func (s *MeetingService) CompleteAndAdvance(ctx context.Context, id uint) (done, next *model.Meeting, err error) {
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		svc := s.withStore(tx)
		var err error
		if done, err = svc.completeMeeting(ctx, id); err != nil {
			return err
		}
		next, err = svc.getSubsequentMeeting(ctx, id, done.StartDate)
		return err
	})
	if err != nil {
		return nil, nil, apperr.Boundary("complete and advance meeting", err)
	}

	s.announceCompletion(ctx, done, next)
	return done, next, nil
}

func (s *MeetingService) announceCompletion(ctx context.Context, done, next *model.Meeting) {
	if s.publisher == nil {
		return
	}
	ev, err := events.NewEvent(events.TypeComplete, "Meeting", events.MeetingCompleted{
		MeetingID:     &done.ID,
		NextMeetingID: &next.ID,
	})
	if err == nil {
		err = events.PublishEvent(ctx, s.publisher, events.ChannelMeetings, ev)
	}
	if err != nil {
		log.Warnf("announce completion of meeting %d: %v", done.ID, err)
	}
}

func (s *MeetingService) Get(ctx context.Context, id uint) (*model.Meeting, error) {
	m, err := s.getMeeting(ctx, id)
	return m, apperr.Boundary("get meeting", err)
}

func (s *MeetingService) List(ctx context.Context, skip, limit int) ([]model.Meeting, error) {
	skip, limit = page(skip, limit)
	ms, err := s.store.Meetings.ListWithRecurrence(ctx, skip, limit)
	return ms, apperr.Boundary("list meetings", err)
}

// ListSeries returns a recurrence and every meeting created for it.
func (s *MeetingService) ListSeries(ctx context.Context, recurrenceID uint) (*model.Recurrence, []model.Meeting, error) {
	rec, err := s.loadRecurrence(ctx, recurrenceID)
	if err != nil {
		return nil, nil, apperr.Boundary("list series", err)
	}
	ms, err := s.store.Meetings.ListBySeries(ctx, recurrenceID)
	return rec, ms, apperr.Boundary("list series", err)
}

func (s *MeetingService) Update(ctx context.Context, id uint, update MeetingUpdate) (*model.Meeting, error) {
	m, err := s.update(ctx, id, update)
	return m, apperr.Boundary("update meeting", err)
}

func (s *MeetingService) update(ctx context.Context, id uint, update MeetingUpdate) (*model.Meeting, error) {
	meeting, err := s.getMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.RecurrenceID != nil {
		ok, err := s.store.Recurrences.Exists(ctx, *update.RecurrenceID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.NotFound("Recurrence with ID %d not found", *update.RecurrenceID)
		}
	}
	if err := update.apply(meeting); err != nil {
		return nil, err
	}
	if err := s.save(ctx, meeting); err != nil {
		return nil, err
	}
	return meeting, nil
}

// Delete removes a meeting together with its attendee and task links.
func (s *MeetingService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.store.Meetings.DeleteWithLinks(ctx, id)
	if err != nil {
		return apperr.Boundary("delete meeting", err)
	}
	if !deleted {
		return apperr.NotFound("Meeting with ID %d not found", id)
	}
	log.Infof("meeting %d deleted", id)
	return nil
}

// ListByUser returns the meetings a user attends.
func (s *MeetingService) ListByUser(ctx context.Context, userID uuid.UUID, skip, limit int) ([]model.Meeting, error) {
	skip, limit = page(skip, limit)
	if err := requireUser(ctx, s.store, userID); err != nil {
		return nil, apperr.Boundary("list meetings by user", err)
	}
	ms, err := s.store.Meetings.ListByUser(ctx, userID, skip, limit)
	return ms, apperr.Boundary("list meetings by user", err)
}

func (s *MeetingService) AddAttendee(ctx context.Context, meetingID uint, userID uuid.UUID) error {
	err := s.addAttendee(ctx, meetingID, userID)
	return apperr.Boundary("add attendee", err)
}

func (s *MeetingService) addAttendee(ctx context.Context, meetingID uint, userID uuid.UUID) error {
	if _, err := s.getMeeting(ctx, meetingID); err != nil {
		return err
	}
	if err := requireUser(ctx, s.store, userID); err != nil {
		return err
	}
	return s.store.Meetings.AddAttendee(ctx, meetingID, userID)
}

func (s *MeetingService) RemoveAttendee(ctx context.Context, meetingID uint, userID uuid.UUID) error {
	removed, err := s.store.Meetings.RemoveAttendee(ctx, meetingID, userID)
	if err != nil {
		return apperr.Boundary("remove attendee", err)
	}
	if !removed {
		return apperr.NotFound("User %s does not attend meeting %d", userID, meetingID)
	}
	return nil
}

func (s *MeetingService) ListAttendees(ctx context.Context, meetingID uint) ([]model.User, error) {
	if _, err := s.getMeeting(ctx, meetingID); err != nil {
		return nil, apperr.Boundary("list attendees", err)
	}
	users, err := s.store.Meetings.ListAttendees(ctx, meetingID)
	return users, apperr.Boundary("list attendees", err)
}

func (s *MeetingService) LinkTask(ctx context.Context, meetingID, taskID uint) error {
	err := s.linkTask(ctx, meetingID, taskID)
	return apperr.Boundary("link task", err)
}

func (s *MeetingService) linkTask(ctx context.Context, meetingID, taskID uint) error {
	if _, err := s.getMeeting(ctx, meetingID); err != nil {
		return err
	}
	if _, err := s.store.Tasks.Get(ctx, taskID); err != nil {
		if isNotFound(err) {
			return apperr.NotFound("Task with ID %d not found", taskID)
		}
		return err
	}
	return s.store.Meetings.LinkTask(ctx, meetingID, taskID)
}

func (s *MeetingService) UnlinkTask(ctx context.Context, meetingID, taskID uint) error {
	removed, err := s.store.Meetings.UnlinkTask(ctx, meetingID, taskID)
	if err != nil {
		return apperr.Boundary("unlink task", err)
	}
	if !removed {
		return apperr.NotFound("Task %d is not linked to meeting %d", taskID, meetingID)
	}
	return nil
}

func (s *MeetingService) getMeeting(ctx context.Context, id uint) (*model.Meeting, error) {
	meeting, err := s.store.Meetings.GetWithRecurrence(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Meeting with ID %d not found", id)
		}
		return nil, err
	}
	return meeting, nil
}

func (s *MeetingService) loadRecurrence(ctx context.Context, id uint) (*model.Recurrence, error) {
	rec, err := s.store.Recurrences.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Recurrence with ID %d not found", id)
		}
		return nil, err
	}
	return rec, nil
}

// save runs the save-time preparation and writes meeting back. The attached
// recurrence is reloaded when the reference changed, and a dangling
// reference simply leaves the title alone.
func (s *MeetingService) save(ctx context.Context, meeting *model.Meeting) error {
	rec := meeting.Recurrence
	if meeting.RecurrenceID == nil {
		rec = nil
	} else if rec == nil || rec.ID != *meeting.RecurrenceID {
		loaded, err := s.store.Recurrences.Get(ctx, *meeting.RecurrenceID)
		switch {
		case err == nil:
			rec = loaded
		case isNotFound(err):
			rec = nil
		default:
			return err
		}
	}

	model.PrepareMeetingForSave(meeting, rec)
	meeting.Recurrence = nil
	if err := s.store.Meetings.Update(ctx, meeting); err != nil {
		return err
	}
	meeting.Recurrence = rec
	return nil
}
