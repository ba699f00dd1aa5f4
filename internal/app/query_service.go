package app

import (
	"context"
	"errors"
	"sync"

	"github.com/openhearth/calendard/internal/domain"
)

// EventStore is the per-entity event collaborator. Implementations
// return the events of one entity that may overlap the given range,
// in their own native order, and honor ctx cancellation.
type EventStore interface {
	GetEvents(ctx context.Context, entityID string, rng domain.Range) ([]domain.Event, error)
}

// EntityEvents pairs an entity with its events. A slice of EntityEvents
// preserves the request order of the entities.
type EntityEvents struct {
	EntityID string
	Events   []domain.Event
}

// QueryResult is the outcome of a multi-entity query. Failures is
// populated only when the service runs with partial results enabled;
// entities listed there do not appear in Entities.
type QueryResult struct {
	Entities []EntityEvents
	Failures map[string]error
}

// QueryService fans a range query out across entities and reassembles
// the per-entity results in request order. It performs no writes.
type QueryService struct {
	store          EventStore
	partialResults bool
}

type QueryServiceOption func(*QueryService)

// WithPartialResults reports per-entity store failures in the result
// instead of aborting the whole query on the first one.
func WithPartialResults() QueryServiceOption {
	return func(s *QueryService) {
		s.partialResults = true
	}
}

func NewQueryService(store EventStore, opts ...QueryServiceOption) *QueryService {
	svc := &QueryService{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Query looks up every entity concurrently and returns the events
// overlapping rng, keyed and ordered by the deduplicated entity list.
// By default a single store failure fails the whole call with a
// *domain.StoreError naming the entity; WithPartialResults switches to
// per-entity error reporting.
func (s *QueryService) Query(ctx context.Context, entityIDs []string, rng domain.Range) (QueryResult, error) {
	ids := dedupe(entityIDs)

	type entityResult struct {
		events []domain.Event
		err    error
	}
	results := make([]entityResult, len(ids))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			events, err := s.store.GetEvents(ctx, id, rng)
			if err != nil {
				results[i].err = &domain.StoreError{EntityID: id, Err: err}
				if !s.partialResults {
					// The query is all-or-nothing; stop sibling lookups.
					cancel()
				}
				return
			}
			results[i].events = filterOverlapping(events, rng)
		}(i, id)
	}
	wg.Wait()

	if !s.partialResults {
		// Cancelling siblings makes them fail with context.Canceled
		// too; the error to surface is the one that triggered the
		// cancellation, not a cancellation casualty.
		var firstErr error
		for i := range results {
			err := results[i].err
			if err == nil {
				continue
			}
			if firstErr == nil || (errors.Is(firstErr, context.Canceled) && !errors.Is(err, context.Canceled)) {
				firstErr = err
			}
		}
		if firstErr != nil {
			return QueryResult{}, firstErr
		}
	}

	var out QueryResult
	for i, id := range ids {
		if err := results[i].err; err != nil {
			if out.Failures == nil {
				out.Failures = make(map[string]error)
			}
			out.Failures[id] = err
			continue
		}
		out.Entities = append(out.Entities, EntityEvents{EntityID: id, Events: results[i].events})
	}
	return out, nil
}

// filterOverlapping keeps the events satisfying the half-open overlap
// test against rng. Store order is preserved; all-day events already
// carry midnight bounds so the same comparison applies.
func filterOverlapping(events []domain.Event, rng domain.Range) []domain.Event {
	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		if rng.Overlaps(ev.Start.Time, ev.End.Time) {
			out = append(out, ev)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
