package service

import (
	"context"
	"strings"
	"time"

	"github.com/labstack/gommon/log"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
	"meeting-planner/internal/recurrence"
	"meeting-planner/internal/repository"
)

// RecurrenceInput is the data required to create a recurrence.
type RecurrenceInput struct {
	RRule string `json:"rrule"`
	Title string `json:"title"`
}

func (in RecurrenceInput) Validate() error {
	return validateRule(in.RRule)
}

// RecurrenceUpdate changes the fields that are set.
type RecurrenceUpdate struct {
	RRule *string `json:"rrule"`
	Title *string `json:"title"`
}

func validateRule(text string) error {
	if err := recurrence.Validate(text); err != nil {
		return &apperr.ValidationError{Detail: "Invalid recurrence rule: " + err.Error(), Cause: err}
	}
	return nil
}

// RecurrenceService manages recurrence rules and evaluates them.
type RecurrenceService struct {
	store *repository.Store
}

func NewRecurrenceService(store *repository.Store) *RecurrenceService {
	return &RecurrenceService{store: store}
}

func (s *RecurrenceService) Create(ctx context.Context, input RecurrenceInput) (*model.Recurrence, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	rec := model.Recurrence{
		RRule: strings.TrimSpace(input.RRule),
		Title: input.Title,
	}
	if err := s.store.Recurrences.Create(ctx, &rec); err != nil {
		return nil, apperr.Boundary("create recurrence", err)
	}
	log.Infof("recurrence %d created: %s", rec.ID, rec.RRule)
	return &rec, nil
}

func (s *RecurrenceService) Get(ctx context.Context, id uint) (*model.Recurrence, error) {
	rec, err := s.get(ctx, id)
	return rec, apperr.Boundary("get recurrence", err)
}

func (s *RecurrenceService) List(ctx context.Context, skip, limit int) ([]model.Recurrence, error) {
	skip, limit = page(skip, limit)
	recs, err := s.store.Recurrences.List(ctx, skip, limit)
	return recs, apperr.Boundary("list recurrences", err)
}

func (s *RecurrenceService) Update(ctx context.Context, id uint, update RecurrenceUpdate) (*model.Recurrence, error) {
	rec, err := s.update(ctx, id, update)
	return rec, apperr.Boundary("update recurrence", err)
}

func (s *RecurrenceService) update(ctx context.Context, id uint, update RecurrenceUpdate) (*model.Recurrence, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.RRule != nil {
		if err := validateRule(*update.RRule); err != nil {
			return nil, err
		}
		rec.RRule = strings.TrimSpace(*update.RRule)
	}
	if update.Title != nil {
		rec.Title = *update.Title
	}
	if err := s.store.Recurrences.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Delete removes a recurrence. Its meetings are kept and become standalone.
func (s *RecurrenceService) Delete(ctx context.Context, id uint) error {
	deleted, err := s.store.Recurrences.DeleteDetaching(ctx, id)
	if err != nil {
		return apperr.Boundary("delete recurrence", err)
	}
	if !deleted {
		return apperr.NotFound("Recurrence with ID %d not found", id)
	}
	log.Infof("recurrence %d deleted", id)
	return nil
}

// NextOccurrence returns the first occurrence of the rule anchored at after,
// after itself included.
func (s *RecurrenceService) NextOccurrence(ctx context.Context, id uint, after time.Time) (time.Time, error) {
	next, err := s.nextOccurrence(ctx, id, after)
	return next, apperr.Boundary("next occurrence", err)
}

func (s *RecurrenceService) nextOccurrence(ctx context.Context, id uint, after time.Time) (time.Time, error) {
	rule, err := s.rule(ctx, id, after)
	if err != nil {
		return time.Time{}, err
	}
	next, ok := rule.Next(after, true)
	if !ok {
		return time.Time{}, apperr.Validation("No future dates found in the recurrence rule")
	}
	return next.UTC(), nil
}

// Occurrences lists the occurrences in [from, to], anchored at from.
func (s *RecurrenceService) Occurrences(ctx context.Context, id uint, from, to time.Time) ([]time.Time, error) {
	occ, err := s.occurrences(ctx, id, from, to)
	return occ, apperr.Boundary("list occurrences", err)
}

func (s *RecurrenceService) occurrences(ctx context.Context, id uint, from, to time.Time) ([]time.Time, error) {
	if to.Before(from) {
		return nil, apperr.Validation("to must not be before from")
	}
	rule, err := s.rule(ctx, id, from)
	if err != nil {
		return nil, err
	}
	occ := rule.Between(from, to, true)
	out := make([]time.Time, 0, len(occ))
	for _, t := range occ {
		out = append(out, t.UTC())
	}
	return out, nil
}

func (s *RecurrenceService) rule(ctx context.Context, id uint, anchor time.Time) (*recurrence.Rule, error) {
	rec, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	rule, err := recurrence.Parse(rec.RRule, anchor)
	if err != nil {
		return nil, &apperr.ValidationError{Detail: "Error parsing recurrence rule: " + err.Error(), Cause: err}
	}
	return rule, nil
}

func (s *RecurrenceService) get(ctx context.Context, id uint) (*model.Recurrence, error) {
	rec, err := s.store.Recurrences.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("Recurrence with ID %d not found", id)
		}
		return nil, err
	}
	return rec, nil
}
