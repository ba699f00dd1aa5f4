package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/openhearth/calendard/internal/domain"
)

// Safety cap on how many instances a single RRULE may contribute.
const maxOccurrencesPerEvent = 1000

// expandEvents turns parsed feed entries into concrete events
// overlapping rng, ordered by start time. Recurring events are
// expanded through their RRULE with EXDATE exceptions and
// RECURRENCE-ID overrides applied.
func expandEvents(parsed []icsEvent, rng domain.Range) []domain.Event {
	base := make([]icsEvent, 0, len(parsed))
	overridesByUID := make(map[string][]icsEvent)
	for _, ev := range parsed {
		if ev.recurrenceID != nil {
			overridesByUID[ev.uid] = append(overridesByUID[ev.uid], ev)
			continue
		}
		base = append(base, ev)
	}

	var out []domain.Event
	for _, ev := range base {
		if ev.rrule == "" {
			if rng.Overlaps(ev.start, ev.end) {
				out = append(out, toDomainEvent(ev, ev.start, ev.end, ""))
			}
			continue
		}
		out = append(out, expandRecurring(ev, overridesByUID[ev.uid], rng)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Time.Before(out[j].Start.Time)
	})
	return out
}

func expandRecurring(ev icsEvent, overrides []icsEvent, rng domain.Range) []domain.Event {
	r, err := rrule.StrToRRule(ev.rrule)
	if err != nil {
		return nil
	}
	r.DTStart(ev.start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.exDates {
		set.ExDate(ex.In(ev.start.Location()))
	}

	dur := ev.end.Sub(ev.start)

	// Between selects by instance start, so widen the window backwards
	// to catch instances that started before the range but still
	// overlap it.
	windowStart := rng.Start.Add(-dur).In(ev.start.Location())
	windowEnd := rng.End.In(ev.start.Location())

	starts := set.Between(windowStart, windowEnd, true)
	if len(starts) > maxOccurrencesPerEvent {
		starts = starts[:maxOccurrencesPerEvent]
	}

	var out []domain.Event
	for _, start := range starts {
		end := start.Add(dur)
		instance := ev
		instanceStart, instanceEnd := start, end

		if o, ok := findOverride(overrides, start); ok {
			instance = o
			instanceStart, instanceEnd = o.start, o.end
		}

		if !rng.Overlaps(instanceStart, instanceEnd) {
			continue
		}
		out = append(out, toDomainEvent(instance, instanceStart, instanceEnd, start.Format(time.RFC3339)))
	}
	return out
}

func findOverride(overrides []icsEvent, start time.Time) (icsEvent, bool) {
	for _, o := range overrides {
		if o.recurrenceID != nil && o.recurrenceID.In(start.Location()).Equal(start) {
			return o, true
		}
	}
	return icsEvent{}, false
}

func toDomainEvent(ev icsEvent, start, end time.Time, recurrenceID string) domain.Event {
	recurring := ev.rrule != "" || ev.recurrenceID != nil

	var startBound, endBound domain.EventTime
	if ev.allDay {
		startBound = domain.NewDate(start)
		endBound = domain.NewDate(end)
	} else {
		startBound = domain.NewDateTime(start)
		endBound = domain.NewDateTime(end)
	}

	return domain.Event{
		UID:          ev.uid,
		Summary:      ev.summary,
		Description:  ev.description,
		Location:     ev.location,
		Start:        startBound,
		End:          endBound,
		RecurrenceID: recurrenceID,
		Recurring:    &recurring,
	}
}
