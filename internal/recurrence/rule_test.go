package recurrence

import (
	"errors"
	"testing"
	"time"
)

const annual = "FREQ=YEARLY;BYMONTH=6;BYMONTHDAY=24;BYHOUR=12;BYMINUTE=0"

func TestNext(t *testing.T) {
	t.Run("a yearly rule from an occurrence yields the same day of the next year", func(t *testing.T) {
		start := time.Date(2024, 6, 24, 12, 0, 0, 0, time.UTC)
		rule, err := Parse("FREQ=YEARLY", start)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		next, ok := rule.Next(start, false)
		if !ok {
			t.Fatalf("expected an occurrence")
		}
		if want := time.Date(2025, 6, 24, 12, 0, 0, 0, time.UTC); !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("the rule's own constraints govern occurrences, not the anchor's date", func(t *testing.T) {
		start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
		rule, err := Parse(annual, start)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		next, ok := rule.Next(start, false)
		if !ok {
			t.Fatalf("expected an occurrence")
		}
		if want := time.Date(2024, 6, 24, 12, 0, 0, 0, time.UTC); !next.Equal(want) {
			t.Errorf("next = %v, want %v", next, want)
		}
	})

	t.Run("inclusive returns the reference when it is an occurrence", func(t *testing.T) {
		at := time.Date(2024, 6, 24, 12, 0, 0, 0, time.UTC)
		rule, err := Parse("RRULE:"+annual, at)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		next, ok := rule.Next(at, true)
		if !ok || !next.Equal(at) {
			t.Errorf("next = %v (%v), want %v", next, ok, at)
		}
	})

	t.Run("a bounded rule past its end has no occurrence", func(t *testing.T) {
		start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		rule, err := Parse("FREQ=WEEKLY;COUNT=2", start)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}

		second, ok := rule.Next(start, false)
		if !ok {
			t.Fatalf("expected a second occurrence")
		}
		if _, ok := rule.Next(second, false); ok {
			t.Errorf("expected no occurrence after the last one")
		}
	})

	t.Run("next is always strictly after the reference", func(t *testing.T) {
		anchor := time.Date(2024, 2, 29, 8, 30, 0, 0, time.UTC)
		rules := []string{
			"FREQ=DAILY",
			"FREQ=WEEKLY;BYDAY=MO,WE,FR",
			"FREQ=MONTHLY;BYMONTHDAY=31",
			"FREQ=YEARLY",
			"FREQ=DAILY;INTERVAL=3;BYHOUR=7,19;BYMINUTE=15",
			annual,
		}
		refs := []time.Time{
			anchor,
			anchor.Add(time.Second),
			anchor.AddDate(0, 5, 3),
			anchor.AddDate(3, 0, 0).Add(-time.Minute),
		}
		for _, text := range rules {
			rule, err := Parse(text, anchor)
			if err != nil {
				t.Fatalf("parse %q: %v", text, err)
			}
			for _, ref := range refs {
				next, ok := rule.Next(ref, false)
				if ok && !next.After(ref) {
					t.Errorf("%q: next(%v) = %v is not after the reference", text, ref, next)
				}
			}
		}
	})
}

func TestParseRejectsMalformedRules(t *testing.T) {
	for _, text := range []string{
		"",
		"   ",
		"BYMONTH=6",
		"FREQ=SOMETIMES",
		"FREQ=",
		"FREQ=WEEKLY;INTERVAL=often",
		"FREQ=DAILY;BYDAY=XX",
		"FREQ=MONTHLY;COLOR=BLUE",
	} {
		t.Run(text, func(t *testing.T) {
			_, err := Parse(text, time.Now())
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
			if err := Validate(text); err == nil {
				t.Errorf("Validate accepted %q", text)
			}
		})
	}
}

func TestBetween(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC) // Monday
	rule, err := Parse("FREQ=WEEKLY;BYDAY=MO,TH", start)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	got := rule.Between(start, start.AddDate(0, 0, 14), true)
	want := []time.Time{
		start,
		start.AddDate(0, 0, 3),
		start.AddDate(0, 0, 7),
		start.AddDate(0, 0, 10),
		start.AddDate(0, 0, 14),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("occurrence %d = %v, want %v", i, got[i], want[i])
		}
	}

	if occ := rule.Between(start, start.AddDate(0, 0, -1), true); occ != nil {
		t.Errorf("expected nothing for an inverted window, got %v", occ)
	}
}

func TestBetweenStopsAtTheCap(t *testing.T) {
	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	rule, err := Parse("FREQ=SECONDLY", start)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	began := time.Now()
	got := rule.Between(start, start.AddDate(20, 0, 0), true)
	if len(got) != maxOccurrences {
		t.Fatalf("got %d occurrences, want %d", len(got), maxOccurrences)
	}
	if want := start.Add((maxOccurrences - 1) * time.Second); !got[len(got)-1].Equal(want) {
		t.Errorf("last occurrence = %v, want %v", got[len(got)-1], want)
	}
	if elapsed := time.Since(began); elapsed > 5*time.Second {
		t.Errorf("a capped window took %v", elapsed)
	}

	// exclusive bounds drop both ends
	got = rule.Between(start, start.Add(3*time.Second), false)
	if len(got) != 2 || !got[0].Equal(start.Add(time.Second)) {
		t.Errorf("unexpected exclusive window %v", got)
	}
}
