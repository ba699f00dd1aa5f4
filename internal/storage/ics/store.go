// Package ics implements an event store backed by ICS subscription
// feeds. Feeds are fetched and parsed into an in-memory cache; reads
// expand recurrences on the fly into the requested range.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/openhearth/calendard/internal/domain"
)

// Source is one ICS subscription bound to a calendar entity.
type Source struct {
	EntityID string
	Name     string
	URL      string
}

// Store serves events for ICS-backed calendar entities. Refresh and
// GetEvents are safe for concurrent use.
type Store struct {
	sources []Source
	client  *http.Client
	logger  *slog.Logger

	mu     sync.RWMutex
	events map[string][]icsEvent
}

func NewStore(sources []Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sources: sources,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
		events:  make(map[string][]icsEvent),
	}
}

// Sources returns the configured subscriptions.
func (s *Store) Sources() []Source {
	return s.sources
}

// Refresh fetches and re-parses every source. A failing source keeps
// its previously cached events; all failures are joined into the
// returned error.
func (s *Store) Refresh(ctx context.Context) error {
	var errs []error
	for _, src := range s.sources {
		body, err := s.fetch(ctx, src.URL)
		if err != nil {
			s.logger.Error("ics fetch failed", "entity_id", src.EntityID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.EntityID, err))
			continue
		}
		parsed, err := parseCalendar(body)
		if err != nil {
			s.logger.Error("ics parse failed", "entity_id", src.EntityID, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", src.EntityID, err))
			continue
		}

		s.mu.Lock()
		s.events[src.EntityID] = parsed
		s.mu.Unlock()

		s.logger.Info("ics source refreshed", "entity_id", src.EntityID, "event_count", len(parsed))
	}
	return errors.Join(errs...)
}

// GetEvents expands the cached feed of entityID into the events
// overlapping rng, ordered by start time.
func (s *Store) GetEvents(ctx context.Context, entityID string, rng domain.Range) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.knows(entityID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, entityID)
	}

	s.mu.RLock()
	parsed := s.events[entityID]
	s.mu.RUnlock()

	return expandEvents(parsed, rng), nil
}

func (s *Store) knows(entityID string) bool {
	for _, src := range s.sources {
		if src.EntityID == entityID {
			return true
		}
	}
	return false
}

func (s *Store) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// setPayload parses body and installs it as the feed of entityID.
// Used by tests and by callers that source ICS data out of band.
func (s *Store) setPayload(entityID string, body []byte) error {
	parsed, err := parseCalendar(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.events[entityID] = parsed
	s.mu.Unlock()
	return nil
}
