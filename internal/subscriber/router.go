// Package subscriber applies domain events received from other services.
package subscriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"

	"meeting-planner/internal/events"
	"meeting-planner/internal/model"
	"meeting-planner/internal/service"
)

// ErrUnsupportedEvent is returned for an event type a channel does not carry.
var ErrUnsupportedEvent = errors.New("unsupported event type")

// UserCommands is the part of the user service driven by user events.
type UserCommands interface {
	Create(ctx context.Context, input service.UserInput) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, update service.UserUpdate) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// TaskCommands is the part of the task service driven by meeting events.
type TaskCommands interface {
	ReassignTasksToMeeting(ctx context.Context, sourceMeetingID, targetMeetingID uint) (int, error)
}

var (
	userCreateFields = []string{"id", "email", "first_name", "last_name", "telegram_id"}
	userUpdateFields = []string{"id", "email", "first_name", "last_name", "telegram_id"}
)

// Router dispatches an event to the service that owns its effect.
type Router struct {
	users UserCommands
	tasks TaskCommands
}

func NewRouter(users UserCommands, tasks TaskCommands) *Router {
	return &Router{users: users, tasks: tasks}
}

// HandleEvent applies ev received on channel. Events on channels the router
// does not know are logged and dropped.
func (r *Router) HandleEvent(ctx context.Context, ev events.Event, channel string) error {
	switch channel {
	case events.ChannelUsers:
		return r.handleUserEvent(ctx, ev)
	case events.ChannelMeetings:
		return r.handleMeetingEvent(ctx, ev)
	default:
		log.Warnf("ignoring %q event on unknown channel %q", ev.EventType, channel)
		return nil
	}
}

func (r *Router) handleUserEvent(ctx context.Context, ev events.Event) error {
	switch ev.EventType {
	case events.TypeCreate:
		var input service.UserInput
		if err := decodeFiltered(ev.Payload, userCreateFields, &input); err != nil {
			return fmt.Errorf("user create event: %w", err)
		}
		if err := input.Validate(); err != nil {
			return fmt.Errorf("user create event: %w", err)
		}
		user, err := r.users.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("user create event: %w", err)
		}
		log.Infof("user %s created from event", user.ID)
		return nil

	case events.TypeUpdate:
		var payload struct {
			ID *uuid.UUID `json:"id"`
			service.UserUpdate
		}
		if err := decodeFiltered(ev.Payload, userUpdateFields, &payload); err != nil {
			return fmt.Errorf("user update event: %w", err)
		}
		if payload.ID == nil {
			return fmt.Errorf("user update event: id is required")
		}
		if err := payload.UserUpdate.Validate(); err != nil {
			return fmt.Errorf("user update event: %w", err)
		}
		if _, err := r.users.Update(ctx, *payload.ID, payload.UserUpdate); err != nil {
			return fmt.Errorf("user update event: %w", err)
		}
		return nil

	case events.TypeDelete:
		var payload struct {
			ID *uuid.UUID `json:"id"`
		}
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("user delete event: %w", err)
		}
		if payload.ID == nil {
			return fmt.Errorf("user delete event: id is required")
		}
		if err := r.users.Delete(ctx, *payload.ID); err != nil {
			return fmt.Errorf("user delete event: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("%w %q on %s", ErrUnsupportedEvent, ev.EventType, events.ChannelUsers)
	}
}

func (r *Router) handleMeetingEvent(ctx context.Context, ev events.Event) error {
	if ev.EventType != events.TypeComplete {
		log.Infof("ignoring %q event on %s", ev.EventType, events.ChannelMeetings)
		return nil
	}

	var payload events.MeetingCompleted
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return fmt.Errorf("meeting complete event: %w", err)
	}
	if payload.MeetingID == nil || payload.NextMeetingID == nil {
		return fmt.Errorf("meeting complete event: meeting_id and next_meeting_id are required")
	}
	if _, err := r.tasks.ReassignTasksToMeeting(ctx, *payload.MeetingID, *payload.NextMeetingID); err != nil {
		return fmt.Errorf("meeting complete event: %w", err)
	}
	return nil
}

// decodeFiltered keeps only the allowed keys of a JSON object and decodes
// the rest strictly into v.
func decodeFiltered(raw json.RawMessage, allowed []string, v any) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if fields == nil {
		return fmt.Errorf("decode payload: payload must be an object")
	}

	kept := make(map[string]json.RawMessage, len(allowed))
	for _, key := range allowed {
		if value, ok := fields[key]; ok {
			kept[key] = value
		}
	}
	if dropped := len(fields) - len(kept); dropped > 0 {
		log.Debugf("dropping %d unknown payload fields", dropped)
	}

	data, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
