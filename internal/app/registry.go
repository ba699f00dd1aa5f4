package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/openhearth/calendard/internal/domain"
)

// Registry is the ordered set of known calendar entities. Lookups by
// id or spoken name and capability checks go through here; the stores
// themselves never see unregistered entities.
type Registry struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]domain.Calendar
}

func NewRegistry(calendars ...domain.Calendar) *Registry {
	r := &Registry{byID: make(map[string]domain.Calendar)}
	for _, c := range calendars {
		r.Add(c)
	}
	return r
}

// Add registers a calendar. Re-adding an entity id replaces the entry
// but keeps its original position.
func (r *Registry) Add(c domain.Calendar) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[c.EntityID]; !ok {
		r.order = append(r.order, c.EntityID)
	}
	r.byID[c.EntityID] = c
}

// Get returns the calendar registered under entityID.
func (r *Registry) Get(entityID string) (domain.Calendar, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[entityID]
	if !ok {
		return domain.Calendar{}, fmt.Errorf("%w: %s", domain.ErrEntityNotFound, entityID)
	}
	return c, nil
}

// List returns all calendars in registration order.
func (r *Registry) List() []domain.Calendar {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Calendar, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// FindByName matches a calendar by its human name, case-insensitively.
func (r *Registry) FindByName(name string) (domain.Calendar, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if c := r.byID[id]; strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return domain.Calendar{}, false
}

// Authorize checks that entityID exists and supports the given
// mutation. An unknown entity and a known entity lacking the
// capability are distinct failures.
func (r *Registry) Authorize(entityID string, cap domain.Capability) error {
	c, err := r.Get(entityID)
	if err != nil {
		return err
	}
	if !c.Supports(cap) {
		return fmt.Errorf("%w: %s does not support %s", domain.ErrNotSupported, entityID, cap)
	}
	return nil
}
