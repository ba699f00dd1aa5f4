package domain

// Capability names a mutation a calendar entity may support.
type Capability string

const (
	CapabilityCreateEvent Capability = "create_event"
	CapabilityUpdateEvent Capability = "update_event"
	CapabilityDeleteEvent Capability = "delete_event"
)

// Calendar describes a queryable calendar entity.
type Calendar struct {
	EntityID string
	Name     string
	// Capabilities lists the mutations this entity supports. Entities
	// backed by read-only stores leave it empty.
	Capabilities []Capability
}

// Supports reports whether the calendar advertises the given mutation
// capability.
func (c Calendar) Supports(cap Capability) bool {
	for _, have := range c.Capabilities {
		if have == cap {
			return true
		}
	}
	return false
}
