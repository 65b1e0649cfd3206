package schedule

import (
	"fmt"
	"time"
)

// SlotCalendar is the derived set of bookable slots for one doctor on one
// date, in chronological order, plus any availability windows that had to be
// skipped because their persisted clock strings would not parse.
type SlotCalendar struct {
	Date     string
	Duration int // consultation duration, minutes
	Slots    []Slot
	Skipped  []string // human-readable notes on malformed template entries
}

// SessionSlots returns the slots belonging to one session, in order.
func (c *SlotCalendar) SessionSlots(session int) []Slot {
	var out []Slot
	for _, s := range c.Slots {
		if s.Session == session {
			out = append(out, s)
		}
	}
	return out
}

type span struct {
	start, end Minutes
}

// BuildSlotCalendar derives the ordered slot list for date from the doctor's
// weekly template minus that date's leave overrides, stepping by the
// consultation duration. It is pure and deterministic. A session shorter
// than one duration yields no slots; a slot is excluded when its own
// [start, start+duration) range intersects a leave interval, and the step
// sequence is not re-packed to close the gap.
func BuildSlotCalendar(doc *Doctor, date string) (*SlotCalendar, error) {
	if doc.AvgConsultMinutes <= 0 {
		return nil, fmt.Errorf("doctor %s has non-positive consultation duration %d", doc.ID, doc.AvgConsultMinutes)
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}

	cal := &SlotCalendar{
		Date:     date,
		Duration: doc.AvgConsultMinutes,
	}

	tmpl, ok := doc.Template.Day(day.Weekday())
	if !ok {
		return cal, nil
	}

	leaves := cal.parseLeaves(doc.Leaves[date])
	step := Minutes(doc.AvgConsultMinutes)

	index := 0
	for sessionIdx, window := range tmpl.Sessions {
		start, err := ParseClock(window.Start)
		if err != nil {
			cal.Skipped = append(cal.Skipped, fmt.Sprintf("session %d start: %v", sessionIdx, err))
			continue
		}
		end, err := ParseClock(window.End)
		if err != nil {
			cal.Skipped = append(cal.Skipped, fmt.Sprintf("session %d end: %v", sessionIdx, err))
			continue
		}

		for at := start; at+step <= end; at += step {
			if intersectsAny(at, at+step, leaves) {
				continue
			}
			cal.Slots = append(cal.Slots, Slot{
				Session: sessionIdx,
				Index:   index,
				Start:   at,
			})
			index++
		}
	}

	return cal, nil
}

func (c *SlotCalendar) parseLeaves(ranges []TimeRange) []span {
	var out []span
	for i, r := range ranges {
		start, err := ParseClock(r.Start)
		if err != nil {
			c.Skipped = append(c.Skipped, fmt.Sprintf("leave %d start: %v", i, err))
			continue
		}
		end, err := ParseClock(r.End)
		if err != nil {
			c.Skipped = append(c.Skipped, fmt.Sprintf("leave %d end: %v", i, err))
			continue
		}
		out = append(out, span{start: start, end: end})
	}
	return out
}

func intersectsAny(start, end Minutes, leaves []span) bool {
	for _, l := range leaves {
		if start < l.end && l.start < end {
			return true
		}
	}
	return false
}
