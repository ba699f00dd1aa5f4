package app

import (
	"context"
	"fmt"
	"time"

	"github.com/openhearth/calendard/internal/clock"
	"github.com/openhearth/calendard/internal/domain"
)

// Range tokens understood by the voice intent.
const (
	RangeTokenToday = "today"
	RangeTokenWeek  = "week"
)

// IntentService answers voice-style "what's on calendar X" requests:
// it maps a spoken calendar name and a relative range token onto a
// query and shapes the result for speech.
type IntentService struct {
	registry *Registry
	query    *QueryService
	clock    clock.Clock
	loc      *time.Location
}

func NewIntentService(registry *Registry, query *QueryService, clk clock.Clock, loc *time.Location) *IntentService {
	if loc == nil {
		loc = time.Local
	}
	return &IntentService{registry: registry, query: query, clock: clk, loc: loc}
}

// ResolveRangeToken maps a range token onto a canonical range at now.
// "today" runs from local midnight to the next midnight; "week" runs
// from the literal current instant to the same instant seven days on.
// The anchoring is deliberately asymmetric.
func (s *IntentService) ResolveRangeToken(token string, now time.Time) (domain.Range, error) {
	now = now.In(s.loc)
	switch token {
	case RangeTokenToday:
		start := clock.StartOfDay(now)
		return domain.Range{Start: start, End: start.AddDate(0, 0, 1)}, nil
	case RangeTokenWeek:
		return domain.Range{Start: now, End: now.AddDate(0, 0, 7)}, nil
	}
	return domain.Range{}, fmt.Errorf("%w: %q", domain.ErrUnknownRangeToken, token)
}

// IntentResponse carries the matched entity and its speech-shaped
// events.
type IntentResponse struct {
	EntityID string        `json:"entity_id"`
	Events   []SpeechEvent `json:"events"`
}

// GetEvents matches a calendar by spoken name, resolves the range
// token and returns the overlapping events shaped for speech.
func (s *IntentService) GetEvents(ctx context.Context, calendarName, token string) (IntentResponse, error) {
	cal, ok := s.registry.FindByName(calendarName)
	if !ok {
		return IntentResponse{}, fmt.Errorf("%w: no calendar named %q", domain.ErrEntityNotFound, calendarName)
	}

	rng, err := s.ResolveRangeToken(token, s.clock.Now())
	if err != nil {
		return IntentResponse{}, err
	}

	result, err := s.query.Query(ctx, []string{cal.EntityID}, rng)
	if err != nil {
		return IntentResponse{}, err
	}

	var events []domain.Event
	if len(result.Entities) > 0 {
		events = result.Entities[0].Events
	}
	return IntentResponse{EntityID: cal.EntityID, Events: ToSpeech(events)}, nil
}
