package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openhearth/calendard/internal/domain"
	"github.com/openhearth/calendard/internal/storage/postgres"
	"github.com/openhearth/calendard/internal/testutil"
)

func TestEventRepository_GetEvents(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	base := time.Date(2023, 6, 22, 0, 0, 0, 0, time.UTC)
	testutil.InsertCalendar(t, ctx, pool, "calendar.work", "Work", 0)
	testutil.InsertEvent(t, ctx, pool, "calendar.work", domain.Event{
		UID:         "uid-inside",
		Summary:     "Inside",
		Description: "desc",
		Location:    "room 1",
		Start:       domain.NewDateTime(base.Add(5 * time.Hour)),
		End:         domain.NewDateTime(base.Add(6 * time.Hour)),
	}, "")
	testutil.InsertEvent(t, ctx, pool, "calendar.work", domain.Event{
		UID:     "uid-before",
		Summary: "Ends at range start",
		Start:   domain.NewDateTime(base.Add(3 * time.Hour)),
		End:     domain.NewDateTime(base.Add(4 * time.Hour)),
	}, "")
	testutil.InsertEvent(t, ctx, pool, "calendar.work", domain.Event{
		UID:     "uid-recurring",
		Summary: "Recurring",
		Start:   domain.NewDateTime(base.Add(5*time.Hour + 30*time.Minute)),
		End:     domain.NewDateTime(base.Add(5*time.Hour + 45*time.Minute)),
	}, "FREQ=WEEKLY")

	repo := postgres.NewEventRepository(pool, time.UTC)
	rng := domain.Range{Start: base.Add(4 * time.Hour), End: base.Add(7 * time.Hour)}

	t.Run("returns overlapping events ordered by start", func(t *testing.T) {
		events, err := repo.GetEvents(ctx, "calendar.work", rng)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if events[0].UID != "uid-inside" || events[1].UID != "uid-recurring" {
			t.Fatalf("wrong events or order: %+v", events)
		}
		if events[0].Description != "desc" || events[0].Location != "room 1" {
			t.Fatalf("fields not round-tripped: %+v", events[0])
		}
	})

	t.Run("recurring flag derives from rrule column", func(t *testing.T) {
		events, err := repo.GetEvents(ctx, "calendar.work", rng)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if events[0].Recurring == nil || *events[0].Recurring {
			t.Fatalf("expected recurring=false for plain event")
		}
		if events[1].Recurring == nil || !*events[1].Recurring {
			t.Fatalf("expected recurring=true for rrule event")
		}
	})

	t.Run("all-day rows keep date-only bounds", func(t *testing.T) {
		testutil.InsertEvent(t, ctx, pool, "calendar.work", domain.Event{
			UID:     "uid-allday",
			Summary: "All day",
			Start:   domain.NewDate(base),
			End:     domain.NewDate(base.AddDate(0, 0, 1)),
		}, "")

		events, err := repo.GetEvents(ctx, "calendar.work", domain.Range{
			Start:  base,
			End:    base.AddDate(0, 0, 1),
			AllDay: true,
		})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var found bool
		for _, ev := range events {
			if ev.UID == "uid-allday" {
				found = true
				if !ev.AllDay() {
					t.Fatalf("expected all-day event, got %+v", ev)
				}
				if got := ev.Start.String(); got != "2023-06-22" {
					t.Fatalf("expected date-only start, got %s", got)
				}
			}
		}
		if !found {
			t.Fatalf("all-day event missing from range query")
		}
	})

	t.Run("unknown calendar", func(t *testing.T) {
		_, err := repo.GetEvents(ctx, "calendar.missing", rng)
		if !errors.Is(err, domain.ErrEntityNotFound) {
			t.Fatalf("expected ErrEntityNotFound, got %v", err)
		}
	})
}

func TestCalendarRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	repo := postgres.NewCalendarRepository(pool)

	t.Run("seed populates an empty database once", func(t *testing.T) {
		now := time.Date(2023, 10, 19, 13, 50, 0, 0, time.UTC)
		if err := repo.SeedDemo(ctx, now); err != nil {
			t.Fatalf("seed: %v", err)
		}
		if err := repo.SeedDemo(ctx, now); err != nil {
			t.Fatalf("re-seed: %v", err)
		}

		calendars, err := repo.ListCalendars(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(calendars) != 1 || calendars[0].EntityID != "calendar.demo" {
			t.Fatalf("unexpected calendars: %+v", calendars)
		}
	})

	t.Run("list preserves position order", func(t *testing.T) {
		testutil.TruncateAll(t, ctx, pool)
		testutil.InsertCalendar(t, ctx, pool, "calendar.b", "B", 1)
		testutil.InsertCalendar(t, ctx, pool, "calendar.a", "A", 2)

		calendars, err := repo.ListCalendars(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(calendars) != 2 || calendars[0].EntityID != "calendar.b" || calendars[1].EntityID != "calendar.a" {
			t.Fatalf("wrong order: %+v", calendars)
		}
	})
}
