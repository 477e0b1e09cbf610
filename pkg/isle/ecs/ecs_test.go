package ecs_test

import (
	"testing"

	"github.com/isle-engine/isle/pkg/isle/ecs"
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/isle-engine/isle/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -------------------------------------------------------------------------------------------------
// Component store
// -------------------------------------------------------------------------------------------------

func TestStore_AddGetRemove(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Position{X: 1, Y: 2})

	got, ok := ecs.Get[testutils.Position](s, "e1")
	require.True(t, ok)
	assert.Equal(t, testutils.Position{X: 1, Y: 2}, got)
	assert.True(t, ecs.Has[testutils.Position](s, "e1"))
	assert.Equal(t, 1, s.Len())

	ecs.Remove[testutils.Position](s, "e1")
	_, ok = ecs.Get[testutils.Position](s, "e1")
	assert.False(t, ok)
	assert.False(t, ecs.Has[testutils.Position](s, "e1"))
	assert.Zero(t, s.Len(), "entity without components doesn't exist")
}

func TestStore_AddOverwrites(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Health{HP: 10, Max: 10})
	ecs.Add(s, "e1", testutils.Health{HP: 4, Max: 10})

	got, ok := ecs.Get[testutils.Health](s, "e1")
	require.True(t, ok)
	assert.Equal(t, 4, got.HP)
	assert.Equal(t, 1, ecs.EntitiesWith[testutils.Health](s).Len(), "overwrite keeps one entry")

	// Removing once must be enough after an overwrite.
	ecs.Remove[testutils.Health](s, "e1")
	assert.Zero(t, s.Len())
}

func TestStore_Absent(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()

	_, ok := ecs.Get[testutils.Position](s, "ghost")
	assert.False(t, ok, "unknown component type")
	_, ok = ecs.GetMut[testutils.Position](s, "ghost")
	assert.False(t, ok)

	ecs.Add(s, "e1", testutils.Velocity{X: 1})
	_, ok = ecs.Get[testutils.Position](s, "e1")
	assert.False(t, ok, "entity lacks the component")
	_, ok = ecs.Get[testutils.Velocity](s, "ghost")
	assert.False(t, ok, "entity doesn't exist")

	assert.NotPanics(t, func() {
		ecs.Remove[testutils.Position](s, "e1")
		ecs.Remove[testutils.Velocity](s, "ghost")
		ecs.Remove[testutils.Label](s, "ghost")
	}, "remove of an absent component is a no-op")

	set := ecs.EntitiesWith[testutils.Label](s)
	assert.NotNil(t, set)
	assert.Zero(t, set.Len())
}

func TestStore_GetReturnsCopy(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Health{HP: 10, Max: 10})

	copied, _ := ecs.Get[testutils.Health](s, "e1")
	copied.HP = 0

	ptr, ok := ecs.GetMut[testutils.Health](s, "e1")
	require.True(t, ok)
	assert.Equal(t, 10, ptr.HP, "editing a copy doesn't reach the store")

	ptr.HP = 1
	got, _ := ecs.Get[testutils.Health](s, "e1")
	assert.Equal(t, 1, got.HP, "editing through GetMut does")
}

func TestStore_TagAccess(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Position{X: 3})
	ecs.Add(s, "e1", testutils.Label{Text: "hero"})

	pos := typetag.TagOf[testutils.Position](s.Registry())
	label := typetag.TagOf[testutils.Label](s.Registry())
	health := typetag.TagOf[testutils.Health](s.Registry())

	assert.True(t, s.HasTag("e1", pos))
	assert.False(t, s.HasTag("e1", health), "registered but never stored")

	comp, ok := s.GetTag("e1", label)
	require.True(t, ok)
	assert.Equal(t, testutils.Label{Text: "hero"}, comp)

	assert.ElementsMatch(t, []typetag.Tag{pos, label}, s.Tags())

	s.RemoveTag("e1", pos)
	assert.False(t, ecs.Has[testutils.Position](s, "e1"))
	assert.ElementsMatch(t, []typetag.Tag{label}, s.Tags(), "empty columns are not reported")
	assert.Equal(t, ecs.NewKeySet("e1"), s.EntitiesWithTag(label))
	assert.Equal(t, ecs.KeySet{}, s.EntitiesWithTag(typetag.Tag(999)))
}

func TestStore_NameCollision(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Health{HP: 1})
	ecs.Add(s, "e1", testutils.Impostor{HP: 2})

	h, ok := ecs.Get[testutils.Health](s, "e1")
	require.True(t, ok)
	i, ok := ecs.Get[testutils.Impostor](s, "e1")
	require.True(t, ok)

	assert.Equal(t, 1, h.HP)
	assert.Equal(t, 2, i.HP, "types sharing a Name live in separate columns")
}

func TestStore_SharedRegistry(t *testing.T) {
	t.Parallel()

	reg := typetag.NewRegistry()
	want := typetag.TagOf[testutils.Velocity](reg)

	s := ecs.NewStore(ecs.WithRegistry(reg), ecs.WithColumnCapacity(1))
	ecs.Add(s, "e1", testutils.Velocity{X: 1})

	assert.Same(t, reg, s.Registry())
	assert.True(t, s.HasTag("e1", want))
}

// Scenario: removing the last component of an entity drops it from every query.
func TestStore_RemoveLastComponent(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Position{})
	ecs.Remove[testutils.Position](s, "e1")

	assert.Zero(t, ecs.EntitiesWith[testutils.Position](s).Len())
	assert.Zero(t, s.EntitiesWithAll(typetag.Tags(s.Registry(), testutils.Position{})).Len())
	assert.False(t, s.View("e1").Alive())
}

// -------------------------------------------------------------------------------------------------
// Handles and views
// -------------------------------------------------------------------------------------------------

func TestStore_Handles(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	ecs.Add(s, "e1", testutils.Position{})

	h, ok := s.Handle("e1")
	require.True(t, ok)
	assert.True(t, s.Valid(h))

	ecs.Remove[testutils.Position](s, "e1")
	assert.False(t, s.Valid(h))

	ecs.Add(s, "e1", testutils.Position{})
	assert.False(t, s.Valid(h), "a new lifetime under the same key gets a new handle")

	h2, ok := s.Handle("e1")
	require.True(t, ok)
	assert.True(t, s.Valid(h2))

	_, ok = s.Handle("ghost")
	assert.False(t, ok)
}

func TestView(t *testing.T) {
	t.Parallel()

	s := ecs.NewStore()
	v := s.View("e1")
	assert.Equal(t, ecs.EntityKey("e1"), v.Key())
	assert.False(t, v.Alive())

	ecs.Add(s, "e1", testutils.Health{HP: 5, Max: 5})
	assert.True(t, v.Alive(), "views see later changes")

	got, ok := ecs.ViewGet[testutils.Health](v)
	require.True(t, ok)
	assert.Equal(t, 5, got.HP)

	ptr, ok := ecs.ViewGetMut[testutils.Health](v)
	require.True(t, ok)
	ptr.HP = 3

	ecs.ViewStage(v, func(h *testutils.Health) error {
		h.HP--
		return nil
	})
	require.NoError(t, s.CommitAll())

	got, _ = ecs.ViewGet[testutils.Health](v)
	assert.Equal(t, 2, got.HP)
}

// -------------------------------------------------------------------------------------------------
// Model-based fuzzing the store
// -------------------------------------------------------------------------------------------------
// Applies random add/remove operations of three component types over a small key space to the
// store and to a map model. After every operation the reverse index must agree with the model:
// EntitiesWith[T] holds exactly the keys the model has a T for, and Len counts the keys that have
// any component.
// -------------------------------------------------------------------------------------------------

type storeModel struct {
	positions map[ecs.EntityKey]testutils.Position
	healths   map[ecs.EntityKey]testutils.Health
	labels    map[ecs.EntityKey]testutils.Label
}

func (m *storeModel) keys(of string) ecs.KeySet {
	set := ecs.KeySet{}
	switch of {
	case "Position":
		for k := range m.positions {
			set[k] = struct{}{}
		}
	case "Health":
		for k := range m.healths {
			set[k] = struct{}{}
		}
	case "Label":
		for k := range m.labels {
			set[k] = struct{}{}
		}
	}
	return set
}

func (m *storeModel) live() int {
	all := ecs.KeySet{}
	for _, name := range []string{"Position", "Health", "Label"} {
		for k := range m.keys(name) {
			all[k] = struct{}{}
		}
	}
	return all.Len()
}

func TestStore_ModelFuzz(t *testing.T) {
	t.Parallel()
	prng := testutils.NewRand(t)

	const (
		opsMax  = 1 << 13
		keySpan = 64
	)

	s := ecs.NewStore(ecs.WithColumnCapacity(2))
	model := storeModel{
		positions: make(map[ecs.EntityKey]testutils.Position),
		healths:   make(map[ecs.EntityKey]testutils.Health),
		labels:    make(map[ecs.EntityKey]testutils.Label),
	}

	for range opsMax {
		key := ecs.EntityKey(testutils.RandEntityKey(prng, keySpan))
		kind := prng.IntN(3)

		switch testutils.RandWeightedOp(prng, storeOps) {
		case st_add:
			switch kind {
			case 0:
				v := testutils.Position{X: prng.IntN(100), Y: prng.IntN(100)}
				ecs.Add(s, key, v)
				model.positions[key] = v
			case 1:
				v := testutils.Health{HP: prng.IntN(100), Max: 100}
				ecs.Add(s, key, v)
				model.healths[key] = v
			default:
				v := testutils.Label{Text: string(key)}
				ecs.Add(s, key, v)
				model.labels[key] = v
			}

		case st_remove:
			switch kind {
			case 0:
				ecs.Remove[testutils.Position](s, key)
				delete(model.positions, key)
			case 1:
				ecs.Remove[testutils.Health](s, key)
				delete(model.healths, key)
			default:
				ecs.Remove[testutils.Label](s, key)
				delete(model.labels, key)
			}

		case st_get:
			gotPos, okPos := ecs.Get[testutils.Position](s, key)
			wantPos, wantOKPos := model.positions[key]
			assert.Equal(t, wantOKPos, okPos, "Get[Position](%s) existence mismatch", key)
			assert.Equal(t, wantPos, gotPos)

			gotHealth, okHealth := ecs.Get[testutils.Health](s, key)
			wantHealth, wantOKHealth := model.healths[key]
			assert.Equal(t, wantOKHealth, okHealth, "Get[Health](%s) existence mismatch", key)
			assert.Equal(t, wantHealth, gotHealth)

		default:
			panic("unreachable")
		}

		// Property: the reverse index matches the model after every operation.
		require.Equal(t, model.keys("Position"), ecs.EntitiesWith[testutils.Position](s))
		require.Equal(t, model.keys("Health"), ecs.EntitiesWith[testutils.Health](s))
		require.Equal(t, model.keys("Label"), ecs.EntitiesWith[testutils.Label](s))

		// Property: an entity exists exactly while it holds a component.
		require.Equal(t, model.live(), s.Len())
	}

	// Property: intersections agree with the model.
	want := ecs.KeySet{}
	for k := range model.positions {
		if _, ok := model.healths[k]; ok {
			want[k] = struct{}{}
		}
	}
	tags := typetag.Tags(s.Registry(), testutils.Position{}, testutils.Health{})
	assert.Equal(t, want, s.EntitiesWithAll(tags))
}

type storeOp uint8

const (
	st_add    storeOp = 50
	st_remove storeOp = 35
	st_get    storeOp = 15
)

var storeOps = []storeOp{st_add, st_remove, st_get}
