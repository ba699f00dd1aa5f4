package app

import (
	"context"
	"fmt"

	"github.com/openhearth/calendard/internal/domain"
)

// StoreMux routes each entity to the event store that owns it, so one
// QueryService can span Postgres-backed and ICS-backed calendars.
type StoreMux struct {
	stores map[string]EventStore
}

func NewStoreMux() *StoreMux {
	return &StoreMux{stores: make(map[string]EventStore)}
}

// Route binds an entity id to a store. Later bindings win.
func (m *StoreMux) Route(entityID string, store EventStore) {
	m.stores[entityID] = store
}

func (m *StoreMux) GetEvents(ctx context.Context, entityID string, rng domain.Range) ([]domain.Event, error) {
	store, ok := m.stores[entityID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, entityID)
	}
	return store.GetEvents(ctx, entityID, rng)
}
