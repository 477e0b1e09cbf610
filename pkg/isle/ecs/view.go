package ecs

// View is a store bound to one entity key, for code that works on a single entity at a time.
type View struct {
	store *Store
	key   EntityKey
}

// View returns a view of the entity with the given key. The entity doesn't have to exist.
func (s *Store) View(key EntityKey) View {
	return View{store: s, key: key}
}

// Key returns the entity key the view is bound to.
func (v View) Key() EntityKey {
	return v.key
}

// Alive reports whether the entity currently holds any component.
func (v View) Alive() bool {
	_, ok := v.store.entities.lookup(v.key)
	return ok
}

// ViewGet is Get for the viewed entity.
func ViewGet[T Component](v View) (T, bool) {
	return Get[T](v.store, v.key)
}

// ViewGetMut is GetMut for the viewed entity.
func ViewGetMut[T Component](v View) (*T, bool) {
	return GetMut[T](v.store, v.key)
}

// ViewStage is Stage for the viewed entity.
func ViewStage[T Component](v View, fn func(*T) error) {
	Stage(v.store, v.key, fn)
}
