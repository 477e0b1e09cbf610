package event

import (
	"slices"

	"github.com/google/uuid"
	"github.com/isle-engine/isle/pkg/isle/typetag"
)

// Subscription is a callback registered for one event type, with optional filter metadata.
// The bus never looks at the filter; it is kept for callers that build their own routing.
type Subscription struct {
	id      uuid.UUID
	tag     typetag.Tag   // Event type the callback expects
	filter  []typetag.Tag // Opaque metadata, nil for plain subscriptions
	handler func(typetag.Typed) bool
}

// ID returns the subscription's unique identifier.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Tag returns the tag of the event type the subscription is registered for.
func (s *Subscription) Tag() typetag.Tag {
	return s.tag
}

// Filter returns a copy of the filter given at registration, nil if there was none.
func (s *Subscription) Filter() []typetag.Tag {
	return slices.Clone(s.filter)
}

// HasFilter reports whether the subscription was registered with a filter.
func (s *Subscription) HasFilter() bool {
	return s.filter != nil
}

// deliver hands the event to the callback if it has the type the callback expects. Returns false
// when the event was dropped.
func (s *Subscription) deliver(ev typetag.Typed) bool {
	return s.handler(ev)
}
