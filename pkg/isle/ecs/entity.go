package ecs

import (
	"math"

	"github.com/isle-engine/isle/pkg/assert"
)

// EntityKey identifies an entity. An entity has no representation of its own; it exists while at
// least one component is stored under its key.
type EntityKey string

// maxEntities is the number of distinct live entities a store can index.
const maxEntities = math.MaxUint32

// Handle pins an entity key to one lifetime of the entity. Keys can be reused after every
// component of an entity is removed; a handle taken before that is no longer Valid.
type Handle struct {
	Index      uint32
	Generation uint32
}

// entityRecord is the interned state of one entity index.
type entityRecord struct {
	key        EntityKey
	generation uint32
	components int // Number of live component slots, the entity is released when this hits 0
}

// entityManager interns entity keys into dense uint32 indices so the reverse index can use
// bitmaps. Indices are recycled in FIFO order once an entity loses its last component.
type entityManager struct {
	indices map[EntityKey]uint32
	records []entityRecord
	free    []uint32
}

func newEntityManager() entityManager {
	return entityManager{
		indices: make(map[EntityKey]uint32),
		records: make([]entityRecord, 0),
		free:    make([]uint32, 0),
	}
}

// lookup returns the index of a live entity.
func (em *entityManager) lookup(key EntityKey) (uint32, bool) {
	idx, ok := em.indices[key]
	return idx, ok
}

// acquire returns the index for key, interning it if the entity doesn't exist yet. A newly
// interned entity has no components until retain is called.
func (em *entityManager) acquire(key EntityKey) uint32 {
	if idx, ok := em.indices[key]; ok {
		return idx
	}

	var idx uint32
	if len(em.free) > 0 {
		idx = em.free[0]
		em.free = em.free[1:]
		em.records[idx].key = key
	} else {
		assert.That(len(em.records) < maxEntities, "max number of entities exceeded")
		idx = uint32(len(em.records)) //nolint:gosec // bounded by the assert above
		em.records = append(em.records, entityRecord{key: key})
	}
	em.indices[key] = idx
	return idx
}

// retain records one more live component on an entity.
func (em *entityManager) retain(idx uint32) {
	em.records[idx].components++
}

// release records one fewer live component. When none are left the key is forgotten, the
// generation moves on, and the index goes back to the free list.
func (em *entityManager) release(idx uint32) {
	rec := &em.records[idx]
	assert.That(rec.components > 0, "entity %q released more components than it held", rec.key)

	rec.components--
	if rec.components > 0 {
		return
	}
	delete(em.indices, rec.key)
	rec.key = ""
	rec.generation++
	em.free = append(em.free, idx)
}

// key returns the key of a live entity index.
func (em *entityManager) key(idx uint32) EntityKey {
	assert.That(int(idx) < len(em.records), "entity index %d out of range", idx)
	return em.records[idx].key
}

func (em *entityManager) handle(key EntityKey) (Handle, bool) {
	idx, ok := em.indices[key]
	if !ok {
		return Handle{}, false
	}
	return Handle{Index: idx, Generation: em.records[idx].generation}, true
}

func (em *entityManager) valid(h Handle) bool {
	if int(h.Index) >= len(em.records) {
		return false
	}
	rec := em.records[h.Index]
	return rec.components > 0 && rec.generation == h.Generation
}

func (em *entityManager) len() int {
	return len(em.indices)
}
