package ecs

// Add stores a component on an entity, overwriting any component of the same type it already
// has. Adding the first component brings the entity into existence.
func Add[T Component](s *Store, key EntityKey, component T) {
	col := ensureColumn[T](s)
	idx := s.entities.acquire(key)
	if col.set(idx, component) {
		s.entities.retain(idx)
	}
}

// Get returns a copy of the entity's component of type T. Returns false if either the entity or
// the component doesn't exist.
func Get[T Component](s *Store, key EntityKey) (T, bool) {
	var zero T
	col, ok := lookupColumn[T](s)
	if !ok {
		return zero, false
	}
	idx, ok := s.entities.lookup(key)
	if !ok {
		return zero, false
	}
	ptr, ok := col.get(idx)
	if !ok {
		return zero, false
	}
	return *ptr, true
}

// GetMut returns a pointer to the entity's component of type T for in-place edits. The caller
// must hold exclusive access to the store while using it, and the pointer is invalidated by the
// next Add or Remove of any T.
func GetMut[T Component](s *Store, key EntityKey) (*T, bool) {
	col, ok := lookupColumn[T](s)
	if !ok {
		return nil, false
	}
	idx, ok := s.entities.lookup(key)
	if !ok {
		return nil, false
	}
	return col.get(idx)
}

// Remove deletes the entity's component of type T. No-op if absent. Removing the last component
// of an entity removes the entity.
func Remove[T Component](s *Store, key EntityKey) {
	col, ok := lookupColumn[T](s)
	if !ok {
		return
	}
	idx, ok := s.entities.lookup(key)
	if !ok {
		return
	}
	if col.remove(idx) {
		s.entities.release(idx)
	}
}

// Has reports whether the entity holds a component of type T.
func Has[T Component](s *Store, key EntityKey) bool {
	col, ok := lookupColumn[T](s)
	if !ok {
		return false
	}
	idx, ok := s.entities.lookup(key)
	return ok && col.has(idx)
}

// EntitiesWith returns the entities holding a component of type T. Never nil.
func EntitiesWith[T Component](s *Store) KeySet {
	col, ok := lookupColumn[T](s)
	if !ok {
		return KeySet{}
	}
	return keySetFromBitmap(&s.entities, col.members())
}
