// Package calendar exports meetings as iCalendar (RFC 5545) documents.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"meeting-planner/internal/model"
)

const productID = "-//meeting-planner//EN"

// uidDomain qualifies event UIDs so they stay unique across calendars.
const uidDomain = "meeting-planner"

// RenderMeeting returns a calendar holding one VEVENT for m.
func RenderMeeting(m model.Meeting) string {
	cal := newCalendar()
	addMeeting(cal, meetingUID(m.ID), m)
	return cal.Serialize()
}

// RenderSeries returns a calendar for a recurrence: a master VEVENT that
// carries the RRULE, anchored at the first meeting, followed by one VEVENT
// per stored meeting overriding its occurrence through RECURRENCE-ID.
func RenderSeries(rec model.Recurrence, meetings []model.Meeting) string {
	cal := newCalendar()
	if name := strings.TrimSpace(rec.Title); name != "" {
		cal.SetXWRCalName(name)
	}
	if len(meetings) == 0 {
		return cal.Serialize()
	}

	first := meetings[0]
	for _, m := range meetings[1:] {
		if m.StartDate.Before(first.StartDate) {
			first = m
		}
	}

	master := cal.AddEvent(seriesUID(rec.ID))
	master.SetDtStampTime(first.CreatedAt.UTC())
	master.SetStartAt(first.StartDate.UTC())
	master.SetEndAt(meetingEnd(first).UTC())
	master.SetSummary(seriesSummary(rec, first))
	if first.Location != "" {
		master.SetLocation(first.Location)
	}
	master.AddProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(rec.RRule)), "RRULE:"))

	for _, m := range meetings {
		ev := addMeeting(cal, seriesUID(rec.ID), m)
		ev.AddProperty(ical.ComponentPropertyRecurrenceId, m.StartDate.UTC().Format(icalTimeFormat))
	}
	return cal.Serialize()
}

const icalTimeFormat = "20060102T150405Z"

func newCalendar() *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)
	return cal
}

func addMeeting(cal *ical.Calendar, uid string, m model.Meeting) *ical.VEvent {
	ev := cal.AddEvent(uid)
	ev.SetDtStampTime(m.CreatedAt.UTC())
	ev.SetStartAt(m.StartDate.UTC())
	ev.SetEndAt(meetingEnd(m).UTC())
	ev.SetSummary(summary(m))
	if m.Location != "" {
		ev.SetLocation(m.Location)
	}
	if m.Notes != "" {
		ev.SetDescription(m.Notes)
	}
	if m.NumReschedules > 0 {
		ev.AddProperty(ical.ComponentPropertySequence, strconv.Itoa(m.NumReschedules))
	}
	return ev
}

// meetingEnd prefers the stored end and falls back to start plus duration.
func meetingEnd(m model.Meeting) time.Time {
	if m.EndDate != nil && !m.EndDate.Before(m.StartDate) {
		return *m.EndDate
	}
	duration := m.Duration
	if duration <= 0 {
		duration = model.DefaultDuration
	}
	return m.StartDate.Add(time.Duration(duration) * time.Minute)
}

func summary(m model.Meeting) string {
	if t := strings.TrimSpace(m.Title); t != "" {
		return t
	}
	return fmt.Sprintf("Meeting #%d", m.ID)
}

func seriesSummary(rec model.Recurrence, first model.Meeting) string {
	if t := strings.TrimSpace(rec.Title); t != "" {
		return t
	}
	return summary(first)
}

func meetingUID(id uint) string {
	return fmt.Sprintf("meeting-%d@%s", id, uidDomain)
}

func seriesUID(id uint) string {
	return fmt.Sprintf("recurrence-%d@%s", id, uidDomain)
}
