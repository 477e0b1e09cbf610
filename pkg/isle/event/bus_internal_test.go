package event

import (
	"bytes"
	"testing"

	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/isle-engine/isle/pkg/testutils"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A subscription filed under the wrong tag must be skipped rather than handed an event of a type
// it doesn't expect.
func TestPublishAny_DropsMisfiledSubscription(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	bus := NewBus(WithLogger(zerolog.New(&logs)))

	var damage, heal int
	Subscribe(bus, func(testutils.DamageEvent) { damage++ })
	healSub := Subscribe(bus, func(testutils.HealEvent) { heal++ })

	damageTag := typetag.TagOf[testutils.DamageEvent](bus.registry)
	bus.mu.Lock()
	bus.subs[damageTag] = append(bus.subs[damageTag], healSub)
	bus.mu.Unlock()

	Publish(bus, testutils.DamageEvent{})

	assert.Equal(t, 1, damage)
	assert.Zero(t, heal, "misfiled callback must not run")
	assert.Contains(t, logs.String(), "Dropped event")
}

// The handler's own type check is the last line of defense when tags agree but types don't.
func TestSubscription_DeliverChecksType(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	var got int
	sub := Subscribe(bus, func(ev testutils.DamageEvent) { got += ev.Amount })

	require.True(t, sub.deliver(testutils.DamageEvent{Amount: 2}))
	assert.False(t, sub.deliver(testutils.HealEvent{Amount: 5}))
	assert.Equal(t, 2, got)
}

func TestSubscribe_NilCallbackPanics(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	assert.Panics(t, func() { Subscribe[testutils.DamageEvent](bus, nil) })
}
