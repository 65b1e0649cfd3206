package schedule

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// reassignCandidate is one arrived patient considered for a pull-forward,
// tagged with its priority tier so the ordering rules stay explicit and
// independently testable rather than buried in nested conditionals.
type reassignCandidate struct {
	appt           Appointment
	walkIn         bool
	windowEligible bool    // walk-in with an empty exclusion-window slot ahead of it
	origStart      Minutes // original scheduled time, for tie-breaks
}

// Priority tiers, lowest first: walk-ins that can fill an exclusion-window
// slot, then other walk-ins, then confirmed advance bookings.
func (c reassignCandidate) tier() int {
	switch {
	case c.walkIn && c.windowEligible:
		return 0
	case c.walkIn:
		return 1
	default:
		return 2
	}
}

func lessCandidate(a, b reassignCandidate) bool {
	if a.tier() != b.tier() {
		return a.tier() < b.tier()
	}
	if a.origStart != b.origStart {
		return a.origStart < b.origStart
	}
	return a.appt.SlotIndex < b.appt.SlotIndex
}

// emptyPool tracks the unclaimed empty slots of one session, split into
// those starting inside the one-hour exclusion window from now (which are
// offered first, since online booking can no longer fill them) and the
// rest. Both halves stay sorted by slot index.
type emptyPool struct {
	window  []Slot
	regular []Slot
}

func (p *emptyPool) add(s Slot, inWindow bool) {
	if inWindow {
		p.window = insertSorted(p.window, s)
	} else {
		p.regular = insertSorted(p.regular, s)
	}
}

func insertSorted(slots []Slot, s Slot) []Slot {
	i := sort.Search(len(slots), func(i int) bool { return slots[i].Index >= s.Index })
	slots = append(slots, Slot{})
	copy(slots[i+1:], slots[i:])
	slots[i] = s
	return slots
}

func earliestBefore(slots []Slot, limit int) (Slot, int, bool) {
	for i, s := range slots {
		if s.Index < limit {
			return s, i, true
		}
	}
	return Slot{}, 0, false
}

func remove(slots []Slot, i int) []Slot {
	return append(slots[:i], slots[i+1:]...)
}

// take picks the candidate's slot: walk-ins prefer exclusion-window slots,
// advance bookings just take the earliest empty slot ahead of them.
func (p *emptyPool) take(c reassignCandidate) (Slot, bool) {
	wSlot, wIdx, wOK := earliestBefore(p.window, c.appt.SlotIndex)
	rSlot, rIdx, rOK := earliestBefore(p.regular, c.appt.SlotIndex)

	switch {
	case c.walkIn && wOK:
		p.window = remove(p.window, wIdx)
		return wSlot, true
	case wOK && rOK:
		if wSlot.Index < rSlot.Index {
			p.window = remove(p.window, wIdx)
			return wSlot, true
		}
		p.regular = remove(p.regular, rIdx)
		return rSlot, true
	case wOK:
		p.window = remove(p.window, wIdx)
		return wSlot, true
	case rOK:
		p.regular = remove(p.regular, rIdx)
		return rSlot, true
	default:
		return Slot{}, false
	}
}

// ReassignArrived pulls physically present patients forward into empty
// slots of the same session on the current date. Pending appointments are
// never moved, each empty slot is consumed at most once, and a re-run with
// no new vacancies performs zero moves.
//
// This is a best-effort optimization: it runs off the task queue and its
// failures never reach the action that exposed the vacancy.
func (s *Service) ReassignArrived(ctx context.Context, doctorID uuid.UUID, date string, session int) error {
	now := s.clock.Now()
	if date != now.Format(DateLayout) {
		// Pull-forwards only ever apply to the live day.
		return nil
	}

	doc, err := s.repo.GetDoctor(ctx, doctorID)
	if err != nil {
		return fmt.Errorf("load doctor: %w", err)
	}

	cal, err := s.calendarFor(doc, date)
	if err != nil {
		return err
	}
	sessionSlots := cal.SessionSlots(session)
	if len(sessionSlots) == 0 {
		return nil
	}

	appts, err := s.repo.ListDayAppointments(ctx, doctorID, date)
	if err != nil {
		return fmt.Errorf("list day appointments: %w", err)
	}

	occupied := make(map[int]bool)
	for _, a := range appts {
		if a.SessionIndex == session && a.Status.Occupies() {
			occupied[a.SlotIndex] = true
		}
	}

	windowEnd := MinutesOfDay(now).Add(s.cfg.OnlineExclusion)
	inWindow := func(slot Slot) bool { return slot.Start < windowEnd }

	pool := &emptyPool{}
	for _, slot := range sessionSlots {
		if !occupied[slot.Index] {
			pool.add(slot, inWindow(slot))
		}
	}
	if len(pool.window) == 0 && len(pool.regular) == 0 {
		return nil
	}

	candidates := s.collectCandidates(appts, session, pool)
	sort.Slice(candidates, func(i, j int) bool { return lessCandidate(candidates[i], candidates[j]) })

	startByIndex := make(map[int]Slot, len(sessionSlots))
	for _, slot := range sessionSlots {
		startByIndex[slot.Index] = slot
	}

	var updates []AppointmentUpdate
	moved := 0
	for _, cand := range candidates {
		slot, ok := pool.take(cand)
		if !ok {
			continue
		}

		newIndex := slot.Index
		newTime := slot.Start.String()
		newCutOff := slot.Start.Add(-s.cfg.CutOffLead).String()
		newNoShow := slot.Start.Add(s.cfg.NoShowGrace).String()
		updates = append(updates, AppointmentUpdate{
			ID:         cand.appt.ID,
			SlotIndex:  &newIndex,
			Time:       &newTime,
			CutOffTime: &newCutOff,
			NoShowTime: &newNoShow,
		})
		moved++

		// The slot this candidate leaves behind opens up for the ones
		// still waiting further down the queue.
		if vacated, ok := startByIndex[cand.appt.SlotIndex]; ok {
			pool.add(vacated, inWindow(vacated))
		}
	}

	if err := s.repo.ApplyUpdates(ctx, updates); err != nil {
		return fmt.Errorf("apply reassignment updates: %w", err)
	}

	if moved > 0 {
		s.log.Info().
			Str("doctor_id", doctorID.String()).
			Str("date", date).
			Int("session", session).
			Int("moved", moved).
			Msg("pulled arrived patients into earlier slots")
	}
	return nil
}

// collectCandidates selects the arrived patients of one session: confirmed
// appointments only (walk-ins are confirmed at the desk; advance bookings
// once the patient shows up). Pending appointments are excluded outright.
func (s *Service) collectCandidates(appts []Appointment, session int, pool *emptyPool) []reassignCandidate {
	var out []reassignCandidate
	for _, a := range appts {
		if a.SessionIndex != session || a.Status != StatusConfirmed {
			continue
		}

		hasEarlier := false
		hasEarlierWindow := false
		for _, slot := range pool.window {
			if slot.Index < a.SlotIndex {
				hasEarlier = true
				hasEarlierWindow = true
				break
			}
		}
		if !hasEarlier {
			for _, slot := range pool.regular {
				if slot.Index < a.SlotIndex {
					hasEarlier = true
					break
				}
			}
		}
		if !hasEarlier {
			continue
		}

		origStart, err := ParseClock(a.Time)
		if err != nil {
			s.log.Warn().
				Str("appointment_id", a.ID.String()).
				Str("time", a.Time).
				Msg("skipping appointment with unparseable time during reassignment")
			continue
		}

		walkIn := a.BookedVia == ViaWalkIn
		out = append(out, reassignCandidate{
			appt:           a,
			walkIn:         walkIn,
			windowEligible: walkIn && hasEarlierWindow,
			origStart:      origStart,
		})
	}
	return out
}
