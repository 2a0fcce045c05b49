package calendar

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"

	"meeting-planner/internal/model"
)

func parse(t *testing.T, text string) *ical.Calendar {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(text))
	if err != nil {
		t.Fatalf("parse calendar: %v\n%s", err, text)
	}
	return cal
}

func property(ev *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ev.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

func TestRenderMeeting(t *testing.T) {
	start := time.Date(2024, 6, 24, 12, 0, 0, 0, time.UTC)
	m := model.Meeting{
		ID:        7,
		Title:     "Design review",
		StartDate: start,
		Duration:  45,
		Location:  "Room 2",
		Notes:     "Bring mockups",
		CreatedAt: start.Add(-24 * time.Hour),
	}

	cal := parse(t, RenderMeeting(m))
	evs := cal.Events()
	if len(evs) != 1 {
		t.Fatalf("expected 1 event, got %d", len(evs))
	}
	ev := evs[0]
	if got := property(ev, ical.ComponentPropertyUniqueId); got != "meeting-7@meeting-planner" {
		t.Errorf("unexpected UID %q", got)
	}
	if got := property(ev, ical.ComponentPropertySummary); got != "Design review" {
		t.Errorf("unexpected summary %q", got)
	}
	if got := property(ev, ical.ComponentPropertyLocation); got != "Room 2" {
		t.Errorf("unexpected location %q", got)
	}
	if got := property(ev, ical.ComponentPropertyDescription); got != "Bring mockups" {
		t.Errorf("unexpected description %q", got)
	}
	gotStart, err := ev.GetStartAt()
	if err != nil || !gotStart.Equal(start) {
		t.Errorf("unexpected start %s (err=%v)", gotStart, err)
	}
	gotEnd, err := ev.GetEndAt()
	if err != nil || !gotEnd.Equal(start.Add(45*time.Minute)) {
		t.Errorf("expected end from duration, got %s (err=%v)", gotEnd, err)
	}
	if ev.GetProperty(ical.ComponentPropertyRrule) != nil {
		t.Errorf("a single meeting must not carry an RRULE")
	}
}

func TestRenderSeries(t *testing.T) {
	rec := model.Recurrence{ID: 3, RRule: "rrule:FREQ=WEEKLY;BYDAY=MO", Title: "Planning"}
	first := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	second := first.AddDate(0, 0, 7)
	end := second.Add(time.Hour)
	meetings := []model.Meeting{
		{ID: 11, Title: "Planning on 2024-07-08", StartDate: second, EndDate: &end, RecurrenceID: &rec.ID},
		{ID: 10, Title: "Planning on 2024-07-01", StartDate: first, Duration: 30, RecurrenceID: &rec.ID},
	}

	text := RenderSeries(rec, meetings)
	cal := parse(t, text)
	evs := cal.Events()
	if len(evs) != 3 {
		t.Fatalf("expected master plus 2 events, got %d:\n%s", len(evs), text)
	}

	master := evs[0]
	if got := property(master, ical.ComponentPropertyRrule); got != "FREQ=WEEKLY;BYDAY=MO" {
		t.Errorf("unexpected RRULE %q", got)
	}
	if got := property(master, ical.ComponentPropertySummary); got != "Planning" {
		t.Errorf("unexpected master summary %q", got)
	}
	if start, err := master.GetStartAt(); err != nil || !start.Equal(first) {
		t.Errorf("expected master anchored at the earliest meeting, got %s (err=%v)", start, err)
	}

	for _, ev := range evs[1:] {
		if got := property(ev, ical.ComponentPropertyUniqueId); got != "recurrence-3@meeting-planner" {
			t.Errorf("expected instances to share the series UID, got %q", got)
		}
		if property(ev, ical.ComponentPropertyRecurrenceId) == "" {
			t.Errorf("instance without RECURRENCE-ID")
		}
	}
	if got := property(evs[1], ical.ComponentPropertyRecurrenceId); got != "20240708T090000Z" {
		t.Errorf("unexpected RECURRENCE-ID %q", got)
	}
}

func TestRenderEmptySeries(t *testing.T) {
	cal := parse(t, RenderSeries(model.Recurrence{ID: 1, RRule: "FREQ=DAILY"}, nil))
	if len(cal.Events()) != 0 {
		t.Errorf("expected no events")
	}
}
