// Package recurrence evaluates iCalendar recurrence rules (RFC 5545 RRULE).
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ErrInvalidRule is wrapped by every parse failure.
var ErrInvalidRule = errors.New("invalid recurrence rule")

// maxOccurrences is the most Between returns for one window.
const maxOccurrences = 5000

// Rule is a parsed recurrence rule anchored at a start time. It is immutable
// and safe for concurrent use.
type Rule struct {
	text string
	r    *rrule.RRule
}

// Parse parses an RRULE such as "FREQ=YEARLY;BYMONTH=6;BYMONTHDAY=24;BYHOUR=12"
// (an "RRULE:" prefix is accepted). dtstart anchors the schedule unless the
// rule carries its own DTSTART; fields the rule leaves open (the minute of a
// daily rule, for instance) are taken from it.
func Parse(text string, dtstart time.Time) (*Rule, error) {
	clean := normalize(text)
	if clean == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrInvalidRule)
	}
	if !hasFreq(clean) {
		return nil, fmt.Errorf("%w: FREQ is required", ErrInvalidRule)
	}

	opt, err := rrule.StrToROptionInLocation(clean, dtstart.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, err)
	}
	if opt.Dtstart.IsZero() {
		opt.Dtstart = dtstart
	}

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRule, err)
	}
	return &Rule{text: clean, r: r}, nil
}

// Validate reports whether text parses as a rule, anchored at the current time.
func Validate(text string) error {
	_, err := Parse(text, time.Now())
	return err
}

// Next returns the earliest occurrence strictly after after, or at after when
// inclusive is set. ok is false when the rule has no further occurrences.
func (r *Rule) Next(after time.Time, inclusive bool) (next time.Time, ok bool) {
	next = r.r.After(after, inclusive)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

// Between returns the occurrences in [from, to] (or (from, to) when inclusive
// is not set), in ascending order. At most maxOccurrences are returned; the
// rule is walked lazily and never expanded past them.
func (r *Rule) Between(from, to time.Time, inclusive bool) []time.Time {
	if to.Before(from) {
		return nil
	}
	next := r.r.Iterator()
	var occ []time.Time
	for len(occ) < maxOccurrences {
		t, ok := next()
		if !ok {
			break
		}
		if t.Before(from) || (!inclusive && t.Equal(from)) {
			continue
		}
		if t.After(to) || (!inclusive && t.Equal(to)) {
			break
		}
		occ = append(occ, t)
	}
	return occ
}

// String returns the rule text as it was parsed, without any DTSTART.
func (r *Rule) String() string {
	return r.text
}

func normalize(text string) string {
	clean := strings.ToUpper(strings.TrimSpace(text))
	if len(clean) >= 6 && strings.EqualFold(clean[:6], "RRULE:") {
		clean = strings.TrimSpace(clean[6:])
	}
	return strings.TrimSuffix(clean, ";")
}

func hasFreq(clean string) bool {
	for _, part := range strings.Split(clean, ";") {
		key, _, _ := strings.Cut(part, "=")
		if strings.EqualFold(strings.TrimSpace(key), "FREQ") {
			return true
		}
	}
	return false
}
