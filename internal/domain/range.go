package domain

import "time"

// Range is the canonical half-open [Start, End) interval all overlap
// computation runs against. End is strictly after Start.
type Range struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Overlaps applies the half-open overlap test: an event overlaps the
// range iff it starts before the range ends and ends after the range
// starts. An event ending exactly at Start, or starting exactly at
// End, does not overlap.
func (r Range) Overlaps(start, end time.Time) bool {
	return start.Before(r.End) && end.After(r.Start)
}
