package domain

import (
	"errors"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time `msgpack:"s"`
	End   time.Time `msgpack:"e"`
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !start.Before(end) {
		return Interval{}, errors.New("interval end must be after start")
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

func Contains(i Interval, t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func OverlapsAny(i Interval, set []Interval) bool {
	for _, o := range set {
		if Overlaps(i, o) {
			return true
		}
	}
	return false
}

// Pad widens i by d on both sides.
func Pad(i Interval, d time.Duration) Interval {
	if d <= 0 {
		return i
	}
	return Interval{Start: i.Start.Add(-d), End: i.End.Add(d)}
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
