package subscriber

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/labstack/gommon/log"

	"meeting-planner/internal/events"
)

// Handler applies one event.
type Handler interface {
	HandleEvent(ctx context.Context, ev events.Event, channel string) error
}

// Listener feeds the messages of a subscription to a Handler, one at a time
// and in delivery order.
type Listener struct {
	subscriber events.Subscriber
	handler    Handler
	channels   []string
	retry      time.Duration
}

// NewListener listens on channels and waits retry before subscribing again
// after a failure.
func NewListener(subscriber events.Subscriber, handler Handler, channels []string, retry time.Duration) *Listener {
	if retry <= 0 {
		retry = 5 * time.Second
	}
	return &Listener{subscriber: subscriber, handler: handler, channels: channels, retry: retry}
}

// Run listens until ctx is done, resubscribing whenever the subscription
// fails. It returns nil on cancellation and events.ErrClosed once the broker
// is closed.
func (l *Listener) Run(ctx context.Context) error {
	for {
		err := l.Listen(ctx)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, events.ErrClosed):
			return err
		}
		log.Warnf("subscription to %v lost: %v; retrying in %s", l.channels, err, l.retry)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.retry):
		}
	}
}

// Listen subscribes once and processes messages until the subscription or
// ctx ends. Bad messages and handler failures are logged and skipped.
func (l *Listener) Listen(ctx context.Context) error {
	sub, err := l.subscriber.Subscribe(ctx, l.channels...)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sub.Close(closeCtx); err != nil {
			log.Warnf("close subscription: %v", err)
		}
	}()
	log.Infof("listening on %v", l.channels)

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		l.dispatch(ctx, msg)
	}
}

func (l *Listener) dispatch(ctx context.Context, msg events.Message) {
	var ev events.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Errorf("skipping undecodable message on %s: %v", msg.Channel, err)
		return
	}
	channel := msg.Channel
	if channel == "" {
		channel = ev.Channel
	}

	log.Debugf("received %q event on %s", ev.EventType, channel)
	if err := l.handler.HandleEvent(ctx, ev, channel); err != nil {
		log.Errorf("handle %q event on %s: %v", ev.EventType, channel, err)
	}
}
