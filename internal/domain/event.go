package domain

import "time"

// EventTime is one bound of a calendar event: either a zoned instant
// or a date-only value with all-day semantics. Date-only bounds carry
// local midnight in Time so overlap comparisons work uniformly.
type EventTime struct {
	Time     time.Time
	DateOnly bool
}

// NewDateTime returns an instant-valued event bound.
func NewDateTime(t time.Time) EventTime {
	return EventTime{Time: t}
}

// NewDate returns a date-only bound at local midnight of t's day, in
// t's location.
func NewDate(t time.Time) EventTime {
	y, m, d := t.Date()
	return EventTime{
		Time:     time.Date(y, m, d, 0, 0, 0, 0, t.Location()),
		DateOnly: true,
	}
}

// String renders the bound the way the wire formats expect: a plain
// date for all-day bounds, RFC 3339 otherwise.
func (t EventTime) String() string {
	if t.DateOnly {
		return t.Time.Format("2006-01-02")
	}
	return t.Time.Format(time.RFC3339)
}

// Event is a single calendar entry as reported by an event store.
// Stores own and mutate events; everything downstream treats them as
// read-only.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       EventTime
	End         EventTime
	// RecurrenceID identifies which instance of a recurring series this
	// event was expanded from; empty for standalone events.
	RecurrenceID string
	// Recurring is nil when the backing store cannot tell whether the
	// event belongs to a recurring series.
	Recurring *bool
}

// AllDay reports whether the event is a date-only, midnight-to-midnight
// entry.
func (e Event) AllDay() bool {
	return e.Start.DateOnly
}
