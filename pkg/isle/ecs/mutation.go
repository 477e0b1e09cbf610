package ecs

import (
	"reflect"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
)

// MutationKind names the edit a Mutation performs.
type MutationKind uint8

const (
	// MutationUpdate runs a function against the component.
	MutationUpdate MutationKind = iota + 1
	// MutationReplace overwrites the component with a new value.
	MutationReplace
	// MutationPatch decodes a JSON object over the component, keeping fields the patch omits.
	MutationPatch
)

func (k MutationKind) String() string {
	switch k {
	case MutationUpdate:
		return "update"
	case MutationReplace:
		return "replace"
	case MutationPatch:
		return "patch"
	default:
		return "unknown"
	}
}

// Mutation is a staged edit to one component. Build it with Update, Replace or Patch.
//
// The Store keeps ownership of the component at all times. Commit hands a mutation a pointer to a
// working copy and stores the copy back only if the mutation returns nil. Only the component value
// is copied, so memory it points to is shared with the stored one.
type Mutation struct {
	kind   MutationKind
	target reflect.Type // Component type the edit expects, nil when any type is accepted
	apply  func(target any) error
}

// Kind returns the kind of edit.
func (m Mutation) Kind() MutationKind {
	return m.kind
}

// Update builds a mutation that runs fn against the component. A returned error aborts the commit.
func Update[T Component](fn func(*T) error) Mutation {
	return Mutation{
		kind:   MutationUpdate,
		target: reflect.TypeFor[T](),
		apply: func(target any) error {
			ptr, err := downcast[T](target)
			if err != nil {
				return err
			}
			return fn(ptr)
		},
	}
}

// Replace builds a mutation that overwrites the component with value.
func Replace[T Component](value T) Mutation {
	return Mutation{
		kind:   MutationReplace,
		target: reflect.TypeFor[T](),
		apply: func(target any) error {
			ptr, err := downcast[T](target)
			if err != nil {
				return err
			}
			*ptr = value
			return nil
		},
	}
}

// Patch builds a mutation that decodes a JSON object over the component. Fields missing from the
// object keep their current value. Works with any component type.
func Patch(data []byte) Mutation {
	patch := make([]byte, len(data))
	copy(patch, data)

	return Mutation{
		kind:   MutationPatch,
		target: nil,
		apply: func(target any) error {
			if err := json.Unmarshal(patch, target); err != nil {
				return eris.Wrap(err, "failed to decode patch")
			}
			return nil
		},
	}
}

// downcast checks that a staged mutation was built for the component type it is applied to. The
// tag a mutation is staged under is picked by the caller at run time, so a mismatch is reported
// as a failed mutation rather than treated as a broken invariant.
func downcast[T Component](target any) (*T, error) {
	ptr, ok := target.(*T)
	if !ok {
		return nil, eris.Errorf("mutation for %s applied to %T", reflect.TypeFor[T](), target)
	}
	return ptr, nil
}
