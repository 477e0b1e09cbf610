// Package typetag assigns stable identifiers to the Go types used as components and events.
//
// A Tag is the index key used everywhere else: component columns, the reverse index, query
// intersections, and event dispatch. Tags are owned by an explicit Registry instance. Share one
// Registry between a store and a bus when tags must agree across them.
package typetag

import (
	"math"
	"reflect"
	"strconv"
	"sync"

	"github.com/isle-engine/isle/pkg/assert"
)

// Typed is the capability a component or event type must expose to participate. The dynamic Go
// type of the value identifies it; Name gives it a human readable label used in logs and search
// results.
type Typed interface { //nolint:iface // single method on purpose
	Name() string
}

// Tag is an opaque identifier for a registered type. It is valid for the lifetime of the Registry
// that issued it.
type Tag uint32

// MaxTag is the largest tag a registry can issue.
const MaxTag = math.MaxUint32 - 1

func (t Tag) String() string {
	return "tag(" + strconv.FormatUint(uint64(t), 10) + ")"
}

// entry is what the registry remembers about a tagged type.
type entry struct {
	typ  reflect.Type
	name string
}

// Registry maps Go types to tags. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	nextID  Tag                  // The next tag to issue
	catalog map[reflect.Type]Tag // Go type -> tag
	entries []entry              // Tag -> type information
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nextID:  0,
		catalog: make(map[reflect.Type]Tag),
		entries: make([]entry, 0),
	}
}

// TagOf returns the tag of T, registering T on first use.
func TagOf[T Typed](r *Registry) Tag {
	var zero T
	return r.register(reflect.TypeFor[T](), zero)
}

// LookupOf returns the tag of T without registering it.
func LookupOf[T Typed](r *Registry) (Tag, bool) {
	return r.lookup(reflect.TypeFor[T]())
}

// TagFor returns the tag of the dynamic type of v, registering it on first use.
func (r *Registry) TagFor(v Typed) Tag {
	assert.That(v != nil, "cannot tag a nil value")
	return r.register(reflect.TypeOf(v), v)
}

// Lookup returns the tag of the dynamic type of v without registering it.
func (r *Registry) Lookup(v Typed) (Tag, bool) {
	if v == nil {
		return 0, false
	}
	return r.lookup(reflect.TypeOf(v))
}

// Tags builds an ordered tag list from zero values of component or event types, e.g.
// Tags(reg, Position{}, Health{}). Order and duplicates are kept as given.
func Tags(r *Registry, values ...Typed) []Tag {
	tags := make([]Tag, len(values))
	for i, v := range values {
		tags[i] = r.TagFor(v)
	}
	return tags
}

// Name returns the Name() of the type behind a tag.
func (r *Registry) Name(tag Tag) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(tag) >= len(r.entries) {
		return "", false
	}
	return r.entries[tag].name, true
}

// Type returns the Go type behind a tag.
func (r *Registry) Type(tag Tag) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(tag) >= len(r.entries) {
		return nil, false
	}
	return r.entries[tag].typ, true
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) lookup(typ reflect.Type) (Tag, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tag, ok := r.catalog[typ]
	return tag, ok
}

// register returns the tag for typ, issuing the next one if typ is new. Identity is the Go type,
// so two types that happen to share a Name() still get different tags.
func (r *Registry) register(typ reflect.Type, v Typed) Tag {
	if tag, ok := r.lookup(typ); ok {
		return tag
	}

	name := nameOf(typ, v)

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have registered it between the two locks.
	if tag, ok := r.catalog[typ]; ok {
		return tag
	}

	assert.That(r.nextID <= MaxTag, "max number of type tags exceeded")

	tag := r.nextID
	r.catalog[typ] = tag
	r.entries = append(r.entries, entry{typ: typ, name: name})
	r.nextID++
	assert.That(int(r.nextID) == len(r.entries), "tag doesn't match number of registered types")

	return tag
}

// nameOf returns v.Name() without calling it on a nil receiver. A nil pointer is replaced by a
// pointer to a fresh zero value, which serves value and pointer receivers alike. A nil interface
// has nothing to call, so the Go type's name stands in.
func nameOf(typ reflect.Type, v Typed) string {
	if v == nil {
		return typ.String()
	}
	if typ.Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil() {
		v = reflect.New(typ.Elem()).Interface().(Typed) //nolint:forcetypeassert // same type as v
	}
	return v.Name()
}
