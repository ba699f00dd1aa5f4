package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openhearth/calendard/internal/domain"
)

// CalendarRepository reads the calendars registered in Postgres and
// can seed a demo dataset for first runs.
type CalendarRepository struct {
	pool *pgxpool.Pool
}

func NewCalendarRepository(pool *pgxpool.Pool) *CalendarRepository {
	return &CalendarRepository{pool: pool}
}

// ListCalendars returns all calendars in insertion order. Entities
// served from Postgres are read-only, so no capabilities are set.
func (r *CalendarRepository) ListCalendars(ctx context.Context) ([]domain.Calendar, error) {
	const query = `SELECT entity_id, name FROM calendars ORDER BY position, entity_id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	var calendars []domain.Calendar
	for rows.Next() {
		var c domain.Calendar
		if err := rows.Scan(&c.EntityID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan calendar: %w", err)
		}
		calendars = append(calendars, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	return calendars, nil
}

// SeedDemo inserts a demo calendar with a couple of events around now
// when no calendars exist yet. It is a no-op on a populated database.
func (r *CalendarRepository) SeedDemo(ctx context.Context, now time.Time) error {
	return withTx(ctx, r.pool, func(txCtx context.Context) error {
		tx := txFromContext(txCtx)

		var count int
		if err := tx.QueryRow(txCtx, `SELECT COUNT(*) FROM calendars`).Scan(&count); err != nil {
			return fmt.Errorf("count calendars: %w", err)
		}
		if count > 0 {
			return nil
		}

		const entityID = "calendar.demo"
		if _, err := tx.Exec(txCtx,
			`INSERT INTO calendars (entity_id, name, position) VALUES ($1, $2, 0)`,
			entityID, "Demo",
		); err != nil {
			return fmt.Errorf("insert demo calendar: %w", err)
		}

		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		seed := []struct {
			summary string
			starts  time.Time
			ends    time.Time
			allDay  bool
		}{
			{"Future Event", now.Add(30 * time.Minute), now.Add(90 * time.Minute), false},
			{"All Day Event", day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), true},
		}
		for _, ev := range seed {
			if _, err := tx.Exec(txCtx, `
INSERT INTO events (uid, calendar_entity_id, summary, description, location, starts_at, ends_at, all_day, rrule)
VALUES ($1, $2, $3, '', '', $4, $5, $6, '')`,
				uuid.NewString(), entityID, ev.summary, ev.starts, ev.ends, ev.allDay,
			); err != nil {
				return fmt.Errorf("insert demo event: %w", err)
			}
		}
		return nil
	})
}
