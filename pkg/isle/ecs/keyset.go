package ecs

import (
	"slices"

	"github.com/kelindar/bitmap"
)

// KeySet is a set of entity keys. Query results are always non-nil, an empty result is an empty
// set.
type KeySet map[EntityKey]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...EntityKey) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

// Has reports whether key is in the set.
func (ks KeySet) Has(key EntityKey) bool {
	_, ok := ks[key]
	return ok
}

// Len returns the number of keys in the set.
func (ks KeySet) Len() int {
	return len(ks)
}

// Sorted returns the keys in ascending order.
func (ks KeySet) Sorted() []EntityKey {
	keys := make([]EntityKey, 0, len(ks))
	for key := range ks {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// keySetFromBitmap resolves a bitmap of entity indices back to keys.
func keySetFromBitmap(em *entityManager, bm bitmap.Bitmap) KeySet {
	set := make(KeySet, bm.Count())
	bm.Range(func(idx uint32) {
		set[em.key(idx)] = struct{}{}
	})
	return set
}
