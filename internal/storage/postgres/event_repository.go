package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhearth/calendard/internal/domain"
)

// EventRepository serves events for Postgres-backed calendar entities.
// It implements app.EventStore.
type EventRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewEventRepository returns a repository reading from pool. loc is
// the calendar's local zone, used to resolve all-day rows to local
// midnight; nil means time.Local.
func NewEventRepository(pool *pgxpool.Pool, loc *time.Location) *EventRepository {
	if loc == nil {
		loc = time.Local
	}
	return &EventRepository{pool: pool, loc: loc}
}

// GetEvents returns the events of entityID overlapping rng, ordered by
// start time. The overlap test is half-open on both sides.
func (r *EventRepository) GetEvents(ctx context.Context, entityID string, rng domain.Range) ([]domain.Event, error) {
	const existsQuery = `SELECT EXISTS (SELECT 1 FROM calendars WHERE entity_id = $1)`
	var exists bool
	if err := r.queryRow(ctx, existsQuery, entityID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check calendar: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, entityID)
	}

	const query = `
SELECT uid, summary, description, location, starts_at, ends_at, all_day, rrule
FROM events
WHERE calendar_entity_id = $1 AND starts_at < $2 AND ends_at > $3
ORDER BY starts_at, uid`

	rows, err := r.query(ctx, query, entityID, rng.End, rng.Start)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			ev               domain.Event
			startsAt, endsAt time.Time
			allDay           bool
			rrule            string
		)
		if err := rows.Scan(&ev.UID, &ev.Summary, &ev.Description, &ev.Location,
			&startsAt, &endsAt, &allDay, &rrule); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}

		if allDay {
			ev.Start = domain.NewDate(startsAt.In(r.loc))
			ev.End = domain.NewDate(endsAt.In(r.loc))
		} else {
			ev.Start = domain.NewDateTime(startsAt)
			ev.End = domain.NewDateTime(endsAt)
		}
		recurring := rrule != ""
		ev.Recurring = &recurring

		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *EventRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
