package ecs

import (
	"slices"

	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/kelindar/bitmap"
)

// EntitiesWithAll returns the entities that hold a component for every given tag.
//
// An empty tag list matches nothing, and so does a list containing a tag no entity holds. The
// reverse-index bitmaps are intersected smallest first, so the result doesn't depend on the order
// of tags.
func (s *Store) EntitiesWithAll(tags []typetag.Tag) KeySet {
	if len(tags) == 0 {
		return KeySet{}
	}

	sets := make([]bitmap.Bitmap, 0, len(tags))
	for _, tag := range tags {
		col := s.column(tag)
		if col == nil || col.len() == 0 {
			return KeySet{}
		}
		sets = append(sets, col.members())
	}

	slices.SortFunc(sets, func(a, b bitmap.Bitmap) int {
		return a.Count() - b.Count()
	})

	// Clone so the And doesn't write into the column's reverse index.
	result := sets[0].Clone(nil)
	for _, other := range sets[1:] {
		result.And(other)
		if result.Count() == 0 {
			return KeySet{}
		}
	}

	return keySetFromBitmap(&s.entities, result)
}
