// Package event is a typed publish/subscribe bus.
//
// Subscribers are keyed by the tag of the event type they accept and run synchronously, in
// registration order, on the goroutine that publishes. Callbacks may be registered from one
// goroutine and invoked from another, so whatever they capture must be safe for that.
//
// A callback must not try to take exclusive access to state its publisher already holds
// exclusively, e.g. call ecs.Add on the store the publishing system is mutating. The bus doesn't
// detect this.
package event

import (
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/isle-engine/isle/pkg/assert"
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/rs/zerolog"
)

// Bus maps event tags to ordered subscription lists. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	registry *typetag.Registry
	subs     map[typetag.Tag][]*Subscription
	log      zerolog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithRegistry makes the bus issue tags from reg.
func WithRegistry(reg *typetag.Registry) Option {
	return func(b *Bus) {
		b.registry = reg
	}
}

// WithLogger sets the bus's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(b *Bus) {
		b.log = log
	}
}

// NewBus creates a bus without subscriptions.
func NewBus(opts ...Option) *Bus {
	b := &Bus{
		subs: make(map[typetag.Tag][]*Subscription),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.registry == nil {
		b.registry = typetag.NewRegistry()
	}
	return b
}

// Registry returns the registry the bus issues tags from.
func (b *Bus) Registry() *typetag.Registry {
	return b.registry
}

// Subscribe registers fn for events of type E.
func Subscribe[E typetag.Typed](b *Bus, fn func(E)) *Subscription {
	return subscribe(b, fn, nil)
}

// SubscribeWithFilter registers fn for events of type E and stores filter on the subscription.
// The filter is metadata only: it does not change which events fn receives.
func SubscribeWithFilter[E typetag.Typed](b *Bus, fn func(E), filter []typetag.Tag) *Subscription {
	return subscribe(b, fn, slices.Clone(filter))
}

func subscribe[E typetag.Typed](b *Bus, fn func(E), filter []typetag.Tag) *Subscription {
	assert.That(fn != nil, "subscription callback must not be nil")

	tag := typetag.TagOf[E](b.registry)
	sub := &Subscription{
		id:     uuid.New(),
		tag:    tag,
		filter: filter,
		handler: func(ev typetag.Typed) bool {
			concrete, ok := ev.(E)
			if !ok {
				return false
			}
			fn(concrete)
			return true
		},
	}

	b.mu.Lock()
	b.subs[tag] = append(b.subs[tag], sub)
	b.mu.Unlock()

	b.log.Debug().Stringer("tag", tag).Str("subscription", sub.id.String()).Msg("Subscribed")
	return sub
}

// Unsubscribe removes a subscription. Returns false if it wasn't registered. Publishes already in
// flight may still invoke it.
func (b *Bus) Unsubscribe(id uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for tag, subs := range b.subs {
		i := slices.IndexFunc(subs, func(s *Subscription) bool { return s.id == id })
		if i < 0 {
			continue
		}
		// Build a new slice so snapshots taken by in-flight publishes stay intact.
		remaining := make([]*Subscription, 0, len(subs)-1)
		remaining = append(remaining, subs[:i]...)
		remaining = append(remaining, subs[i+1:]...)
		if len(remaining) == 0 {
			delete(b.subs, tag)
		} else {
			b.subs[tag] = remaining
		}
		return true
	}
	return false
}

// Publish invokes every subscriber of E with ev, in registration order, and returns after the
// last one has run. Publishing with no subscribers is a no-op.
func Publish[E typetag.Typed](b *Bus, ev E) {
	b.PublishAny(ev)
}

// PublishAny publishes an event whose type is only known at run time. Subscribers are looked up
// by the event's dynamic type; a subscription that expects a different type is skipped.
func (b *Bus) PublishAny(ev typetag.Typed) {
	if ev == nil {
		return
	}
	tag, ok := b.registry.Lookup(ev)
	if !ok {
		return // Nobody ever subscribed to this type.
	}

	for _, sub := range b.snapshot(tag) {
		if sub.tag != tag || !sub.deliver(ev) {
			b.log.Warn().
				Stringer("event_tag", tag).
				Stringer("subscription_tag", sub.tag).
				Str("subscription", sub.id.String()).
				Msg("Dropped event for subscription expecting another type")
		}
	}
}

// GetSubscriptions returns the subscriptions for E in registration order.
func GetSubscriptions[E typetag.Typed](b *Bus) []*Subscription {
	tag, ok := typetag.LookupOf[E](b.registry)
	if !ok {
		return []*Subscription{}
	}
	return b.snapshot(tag)
}

// Subscriptions returns the subscriptions registered under tag in registration order.
func (b *Bus) Subscriptions(tag typetag.Tag) []*Subscription {
	return b.snapshot(tag)
}

// snapshot copies the subscription list so callbacks run without holding the lock and may
// subscribe or unsubscribe themselves.
func (b *Bus) snapshot(tag typetag.Tag) []*Subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subs[tag]
	out := make([]*Subscription, len(subs))
	copy(out, subs)
	return out
}
