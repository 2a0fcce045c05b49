package bot

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/gommon/log"
)

// SendReminders delivers due meeting reminders to attendees with a linked
// chat. A reminder is marked sent once every linked attendee received it;
// failed deliveries are retried on the next round.
func (b *Bot) SendReminders(ctx context.Context) error {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	reminders, err := b.reminders.DueReminders(ctx, time.Now())
	if err != nil {
		return err
	}

	var errs []error
	for _, r := range reminders {
		if err := ctx.Err(); err != nil {
			return err
		}

		delivered := true
		for _, user := range r.Attendees {
			if user.TelegramID == nil {
				continue
			}
			if err := b.sendText(*user.TelegramID, r.Text); err != nil {
				log.Warnf("send reminder of meeting %d to %d: %v", r.Meeting.ID, *user.TelegramID, err)
				delivered = false
			}
		}
		if !delivered {
			continue
		}
		if err := b.reminders.MarkSent(ctx, r.Meeting.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendDailyAgendas sends every linked user the agenda of the current day.
func (b *Bot) SendDailyAgendas(ctx context.Context) error {
	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	users, err := b.users.ListLinked(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if user.TelegramID == nil {
			continue
		}
		text, err := b.reminders.DailyAgenda(ctx, user, now)
		if err != nil {
			log.Warnf("build agenda for user %s: %v", user.ID, err)
			continue
		}
		if err := b.sendText(*user.TelegramID, text); err != nil {
			log.Warnf("send agenda to %d: %v", *user.TelegramID, err)
		}
	}
	return nil
}
