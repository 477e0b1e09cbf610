package ecs

import (
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/rs/zerolog"
)

// Component is the capability every component type must expose.
type Component = typetag.Typed

// defaultColumnCapacity is the starting capacity of a new component column.
const defaultColumnCapacity = 16

// Store owns every component of every entity.
//
// Add, Remove, GetMut and Commit need exclusive access: nothing else may touch the store while
// they run. Get, Has, EntitiesWith, EntitiesWithAll, Search and Stage only need shared access and
// may run concurrently with each other. Stage is the one mutation path legal under shared access;
// the mutation is applied by a later Commit.
type Store struct {
	registry *typetag.Registry
	entities entityManager
	columns  []abstractColumn // Tag -> column, nil until a component of that type is added
	staged   stagingQueue
	log      zerolog.Logger

	columnCapacity int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithRegistry makes the store issue tags from reg. Share one registry with the event bus when
// tags have to agree between them.
func WithRegistry(reg *typetag.Registry) StoreOption {
	return func(s *Store) {
		s.registry = reg
	}
}

// WithLogger sets the store's logger.
func WithLogger(log zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.log = log
	}
}

// WithColumnCapacity sets the initial capacity of component columns.
func WithColumnCapacity(capacity int) StoreOption {
	return func(s *Store) {
		if capacity > 0 {
			s.columnCapacity = capacity
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		entities:       newEntityManager(),
		columns:        make([]abstractColumn, 0),
		staged:         newStagingQueue(),
		log:            zerolog.Nop(),
		columnCapacity: defaultColumnCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = typetag.NewRegistry()
	}
	return s
}

// Registry returns the registry the store issues tags from.
func (s *Store) Registry() *typetag.Registry {
	return s.registry
}

// Len returns the number of live entities.
func (s *Store) Len() int {
	return s.entities.len()
}

// Tags returns the tags of every component type currently held by at least one entity.
func (s *Store) Tags() []typetag.Tag {
	tags := make([]typetag.Tag, 0, len(s.columns))
	for _, col := range s.columns {
		if col != nil && col.len() > 0 {
			tags = append(tags, col.tag())
		}
	}
	return tags
}

// HasTag reports whether the entity holds a component with the given tag.
func (s *Store) HasTag(key EntityKey, tag typetag.Tag) bool {
	col := s.column(tag)
	if col == nil {
		return false
	}
	idx, ok := s.entities.lookup(key)
	return ok && col.has(idx)
}

// GetTag returns the entity's component with the given tag as a type-erased value.
func (s *Store) GetTag(key EntityKey, tag typetag.Tag) (Component, bool) {
	col := s.column(tag)
	if col == nil {
		return nil, false
	}
	idx, ok := s.entities.lookup(key)
	if !ok {
		return nil, false
	}
	return col.getAbstract(idx)
}

// RemoveTag removes the entity's component with the given tag. No-op if absent.
func (s *Store) RemoveTag(key EntityKey, tag typetag.Tag) {
	col := s.column(tag)
	if col == nil {
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

// EntitiesWithTag returns the entities holding a component with the given tag. Unknown tags yield
// an empty set.
func (s *Store) EntitiesWithTag(tag typetag.Tag) KeySet {
	col := s.column(tag)
	if col == nil {
		return KeySet{}
	}
	return keySetFromBitmap(&s.entities, col.members())
}

// Handle returns a generation-checked handle for a live entity.
func (s *Store) Handle(key EntityKey) (Handle, bool) {
	return s.entities.handle(key)
}

// Valid reports whether the entity a handle was taken from is still alive. It turns false once
// the entity loses its last component, even if the key comes back later.
func (s *Store) Valid(h Handle) bool {
	return s.entities.valid(h)
}

// column returns the column for a tag, or nil if no component of that type was ever added.
func (s *Store) column(tag typetag.Tag) abstractColumn {
	if int(tag) >= len(s.columns) {
		return nil
	}
	return s.columns[tag]
}

// lookupColumn returns the typed column for T without creating it.
func lookupColumn[T Component](s *Store) (*column[T], bool) {
	tag, ok := typetag.LookupOf[T](s.registry)
	if !ok {
		return nil, false
	}
	col := s.column(tag)
	if col == nil {
		return nil, false
	}
	return toColumn[T](col), true
}

// ensureColumn returns the typed column for T, creating it on first use.
func ensureColumn[T Component](s *Store) *column[T] {
	tag := typetag.TagOf[T](s.registry)
	s.columns = growTo(s.columns, int(tag)+1, abstractColumn(nil))
	if s.columns[tag] == nil {
		name, _ := s.registry.Name(tag)
		s.columns[tag] = newColumn[T](tag, name, s.columnCapacity)
		s.log.Debug().Str("component", s.columns[tag].name()).Stringer("tag", tag).Msg("Created component column")
	}
	return toColumn[T](s.columns[tag])
}
