package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
	"meeting-planner/internal/repository"
)

// Reminder is a meeting about to start, with the people to notify.
type Reminder struct {
	Meeting   model.Meeting
	Attendees []model.User
	Text      string
}

// ReminderService builds human-readable notifications: reminders for
// upcoming meetings and the daily agenda of a user.
type ReminderService struct {
	store *repository.Store
	lead  time.Duration
	loc   *time.Location
}

// NewReminderService returns a service that reminds lead ahead of a meeting
// and renders times in loc.
func NewReminderService(store *repository.Store, lead time.Duration, loc *time.Location) *ReminderService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderService{store: store, lead: lead, loc: loc}
}

// DueReminders returns the open meetings starting within [now, now+lead]
// whose reminder was not sent yet.
func (s *ReminderService) DueReminders(ctx context.Context, now time.Time) ([]Reminder, error) {
	meetings, err := s.store.Meetings.ListPendingReminders(ctx, now, now.Add(s.lead))
	if err != nil {
		return nil, apperr.Boundary("list due reminders", err)
	}

	reminders := make([]Reminder, 0, len(meetings))
	for _, m := range meetings {
		attendees, err := s.store.Meetings.ListAttendees(ctx, m.ID)
		if err != nil {
			return nil, apperr.Boundary("list due reminders", err)
		}
		reminders = append(reminders, Reminder{
			Meeting:   m,
			Attendees: attendees,
			Text:      s.reminderText(m, now),
		})
	}
	return reminders, nil
}

// MarkSent records that the reminder of a meeting went out.
func (s *ReminderService) MarkSent(ctx context.Context, meetingID uint) error {
	return apperr.Boundary("mark reminder sent", s.store.Meetings.MarkReminderSent(ctx, meetingID))
}

// DailyAgenda lists the user's meetings of the day containing now and the
// user's open tasks.
func (s *ReminderService) DailyAgenda(ctx context.Context, user model.User, now time.Time) (string, error) {
	now = now.In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	meetings, err := s.store.Meetings.ListByUserBetween(ctx, user.ID, dayStart, dayEnd.Add(-time.Second))
	if err != nil {
		return "", apperr.Boundary("daily agenda", err)
	}
	tasks, err := s.store.Tasks.ListOpenByAssignee(ctx, user.ID)
	if err != nil {
		return "", apperr.Boundary("daily agenda", err)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Agenda for %s</b>\n", html.EscapeString(user.DisplayName())))
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Monday, 02 Jan 2006")))

	builder.WriteString("📅 <b>Meetings</b>\n")
	if len(meetings) == 0 {
		builder.WriteString("— no meetings today\n")
	} else {
		for _, m := range meetings {
			builder.WriteString(s.formatMeeting(m))
		}
	}

	builder.WriteString("\n🔥 <b>Open tasks</b>\n")
	if len(tasks) == 0 {
		builder.WriteString("— no open tasks\n")
	} else {
		for _, task := range tasks {
			builder.WriteString(formatTask(task, now))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// OpenTasks renders the user's open tasks alone.
func (s *ReminderService) OpenTasks(ctx context.Context, user model.User, now time.Time) (string, error) {
	tasks, err := s.store.Tasks.ListOpenByAssignee(ctx, user.ID)
	if err != nil {
		return "", apperr.Boundary("open tasks", err)
	}
	if len(tasks) == 0 {
		return "🎉 No open tasks.", nil
	}
	now = now.In(s.loc)
	var builder strings.Builder
	builder.WriteString("🔥 <b>Open tasks</b>\n")
	for _, task := range tasks {
		builder.WriteString(formatTask(task, now))
	}
	return strings.TrimSpace(builder.String()), nil
}

func (s *ReminderService) reminderText(m model.Meeting, now time.Time) string {
	start := m.StartDate.In(s.loc)
	minutes := int(start.Sub(now).Round(time.Minute).Minutes())

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("⏰ <b>%s</b>", html.EscapeString(meetingTitle(m))))
	if minutes > 0 {
		sb.WriteString(fmt.Sprintf(" starts in %d min", minutes))
	} else {
		sb.WriteString(" starts now")
	}
	sb.WriteString(fmt.Sprintf("\n   🕒 %s (%d min)", start.Format("15:04"), m.Duration))
	if loc := strings.TrimSpace(m.Location); loc != "" {
		sb.WriteString(fmt.Sprintf("\n   📍 %s", html.EscapeString(loc)))
	}
	return sb.String()
}

func (s *ReminderService) formatMeeting(m model.Meeting) string {
	var sb strings.Builder

	icon := "🟢"
	if m.Completed {
		icon = "✅"
	}
	start := m.StartDate.In(s.loc)
	sb.WriteString(fmt.Sprintf("%s %s %s", icon, start.Format("15:04"), html.EscapeString(meetingTitle(m))))
	if loc := strings.TrimSpace(m.Location); loc != "" {
		sb.WriteString(fmt.Sprintf(" <i>(%s)</i>", html.EscapeString(loc)))
	}
	if m.NumReschedules > 0 {
		sb.WriteString(fmt.Sprintf("\n   🔁 rescheduled %d×", m.NumReschedules))
	}
	sb.WriteByte('\n')
	return sb.String()
}

func formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s, <b>overdue</b>", d.Format("2006-01-02")))
		} else {
			daysLeft := int(d.Sub(now).Hours()/24) + 1
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ≈%d d left", d.Format("2006-01-02"), daysLeft))
		}
	}

	if task.Description != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(strings.TrimSpace(task.Description))))
	}

	sb.WriteByte('\n')
	return sb.String()
}

func meetingTitle(m model.Meeting) string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Meeting #%d", m.ID)
}
