// Package events carries domain events between services over named channels.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	ChannelUsers    = "user-events"
	ChannelMeetings = "meeting-events"
)

const (
	TypeCreate   = "create"
	TypeUpdate   = "update"
	TypeDelete   = "delete"
	TypeComplete = "complete"
)

// ErrClosed is returned by a closed broker or subscription.
var ErrClosed = errors.New("events: closed")

// Event is the envelope published on a channel.
type Event struct {
	EventType string          `json:"event_type"`
	Model     string          `json:"model,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Channel   string          `json:"channel,omitempty"`
}

// MeetingCompleted is the payload of a "complete" event on ChannelMeetings.
type MeetingCompleted struct {
	MeetingID     *uint `json:"meeting_id"`
	NextMeetingID *uint `json:"next_meeting_id"`
}

// NewEvent marshals payload into an envelope.
func NewEvent(eventType, model string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{EventType: eventType, Model: model, Payload: raw}, nil
}

// Message is a raw payload received from a channel.
type Message struct {
	Channel string
	Data    []byte
}

// Publisher sends a payload to every subscriber of channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, data []byte) error
}

// Subscriber opens subscriptions on one or more channels.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// Subscription delivers messages in publish order per channel.
type Subscription interface {
	// Next blocks until a message arrives, ctx is done, or the subscription
	// fails.
	Next(ctx context.Context) (Message, error)
	Close(ctx context.Context) error
}

// Broker is both ends of the event stream.
type Broker interface {
	Publisher
	Subscriber
	Close() error
}

// PublishEvent encodes ev and publishes it on channel.
func PublishEvent(ctx context.Context, p Publisher, channel string, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.Publish(ctx, channel, data); err != nil {
		return fmt.Errorf("publish %s on %s: %w", ev.EventType, channel, err)
	}
	return nil
}
