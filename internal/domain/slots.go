package domain

import (
	"iter"
	"time"
)

// RejectReason explains why a candidate interval cannot be booked.
type RejectReason int

const (
	ReasonNone RejectReason = iota
	ReasonPastDate
	ReasonOutsideWorkingHours
	ReasonOffGrid
	ReasonLeadTime
	ReasonOverlap
	ReasonBuffer
)

func (r RejectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonPastDate:
		return "date is not in the future"
	case ReasonOutsideWorkingHours:
		return "outside working hours"
	case ReasonOffGrid:
		return "start time is not on the slot grid"
	case ReasonLeadTime:
		return "start time is within the minimum lead time"
	case ReasonOverlap:
		return "overlaps an occupied interval"
	case ReasonBuffer:
		return "within the buffer of an occupied interval"
	default:
		return "unknown"
	}
}

// Occupancy reports whether the reason stems from existing occupancy rather than trainer rules.
func (r RejectReason) Occupancy() bool {
	return r == ReasonOverlap || r == ReasonBuffer
}

// SlotRules are the trainer settings resolved for slot evaluation.
type SlotRules struct {
	Settings TrainerSettings
	Location *time.Location
	Step     time.Duration
	Buffer   time.Duration
	MinLead  time.Duration
}

func NewSlotRules(s TrainerSettings) (SlotRules, error) {
	loc, err := s.Location()
	if err != nil {
		return SlotRules{}, err
	}
	return SlotRules{
		Settings: s,
		Location: loc,
		Step:     time.Duration(s.SlotDurationMinutes) * time.Minute,
		Buffer:   time.Duration(s.BufferMinutes) * time.Minute,
		MinLead:  time.Duration(s.MinLeadTimeMinutes) * time.Minute,
	}, nil
}

// WorkingInterval returns the working window of date as instants in the trainer's location.
func (r SlotRules) WorkingInterval(date time.Time) (Interval, bool) {
	w, ok := r.Settings.Window(date.Weekday())
	if !ok {
		return Interval{}, false
	}
	return Interval{
		Start: At(date, w.Start, r.Location),
		End:   At(date, w.End, r.Location),
	}, true
}

// CheckOccupancy tests candidate against occupied intervals, padding each by the buffer.
func (r SlotRules) CheckOccupancy(candidate Interval, occupied []Interval) RejectReason {
	if OverlapsAny(candidate, occupied) {
		return ReasonOverlap
	}
	if r.Buffer > 0 {
		for _, o := range occupied {
			if Overlaps(candidate, Pad(o, r.Buffer)) {
				return ReasonBuffer
			}
		}
	}
	return ReasonNone
}

// CheckCandidate applies every slot rule to candidate. Listing and committing both go through it.
func (r SlotRules) CheckCandidate(candidate Interval, occupied []Interval, now time.Time) RejectReason {
	date := DateOf(candidate.Start, r.Location)
	if !date.After(DateOf(now, r.Location)) {
		return ReasonPastDate
	}

	w, ok := r.Settings.Window(date.Weekday())
	if !ok {
		return ReasonOutsideWorkingHours
	}
	window, _ := r.WorkingInterval(date)
	if candidate.Start.Before(window.Start) || candidate.End.After(window.End) {
		return ReasonOutsideWorkingHours
	}
	if r.Step > 0 && !r.onGrid(date, w, candidate.Start) {
		return ReasonOffGrid
	}
	if candidate.Start.Before(now.Add(r.MinLead)) {
		return ReasonLeadTime
	}
	return r.CheckOccupancy(candidate, occupied)
}

// onGrid reports whether start is a slot of date: a whole-minute wall-clock time a multiple of
// the step after the window opens, and the first instant carrying that wall-clock time.
func (r SlotRules) onGrid(date time.Time, w DailyWindow, start time.Time) bool {
	l := start.In(r.Location)
	if l.Second() != 0 || l.Nanosecond() != 0 {
		return false
	}
	c := ClockTime(l.Hour()*60 + l.Minute())
	step := ClockTime(r.Step / time.Minute)
	if step <= 0 || c < w.Start || (c-w.Start)%step != 0 {
		return false
	}
	t, ok := r.slotStart(date, c)
	return ok && t.Equal(start)
}

// slotStart resolves wall-clock time c on date. It reports false when c does not exist
// on date in the trainer's location (skipped by a DST change).
func (r SlotRules) slotStart(date time.Time, c ClockTime) (time.Time, bool) {
	t := At(date, c, r.Location)
	l := t.In(r.Location)
	return t, l.Day() == date.Day() && ClockTime(l.Hour()*60+l.Minute()) == c
}

// GenerateSlots yields bookable start times on date in ascending order.
// Slots step on the trainer's wall clock, so each "HH:MM" appears at most once even across
// DST changes. The sequence is lazy and may be ranged over any number of times.
func GenerateSlots(r SlotRules, date time.Time, serviceDuration time.Duration, occupied []Interval, now time.Time) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		step := ClockTime(r.Step / time.Minute)
		if serviceDuration <= 0 || step <= 0 {
			return
		}
		d := NormalizeDate(date)
		if !d.After(DateOf(now, r.Location)) {
			return
		}
		w, ok := r.Settings.Window(d.Weekday())
		if !ok {
			return
		}
		for c := w.Start; c < w.End; c += step {
			t, ok := r.slotStart(d, c)
			if !ok {
				continue
			}
			candidate := Interval{Start: t, End: t.Add(serviceDuration)}
			if r.CheckCandidate(candidate, occupied, now) != ReasonNone {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// AnySlot reports whether GenerateSlots would yield at least one start time.
func AnySlot(r SlotRules, date time.Time, serviceDuration time.Duration, occupied []Interval, now time.Time) bool {
	for range GenerateSlots(r, date, serviceDuration, occupied, now) {
		return true
	}
	return false
}
