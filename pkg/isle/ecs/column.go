package ecs

import (
	"github.com/isle-engine/isle/pkg/assert"
	"github.com/isle-engine/isle/pkg/isle/typetag"
	"github.com/kelindar/bitmap"
)

// abstractColumn is the type-erased view of a column used wherever the component type is only
// known as a tag (queries, commit, search).
type abstractColumn interface {
	tag() typetag.Tag
	name() string
	len() int
	members() bitmap.Bitmap

	has(idx uint32) bool
	getAbstract(idx uint32) (Component, bool)
	apply(idx uint32, fn func(target any) error) (bool, error)
	remove(idx uint32) bool
}

var _ abstractColumn = &column[Component]{}

// column stores every component of one type. Values live in a dense slice; rows maps entity
// indices to positions in it and owners maps positions back. entities is the reverse index for the
// column's tag and always holds exactly the indices present in rows.
type column[T Component] struct {
	compTag  typetag.Tag
	compName string
	rows     rowIndex
	owners   []uint32
	values   []T
	entities bitmap.Bitmap
}

func newColumn[T Component](tag typetag.Tag, name string, capacity int) *column[T] {
	return &column[T]{
		compTag:  tag,
		compName: name,
		rows:     newRowIndex(),
		owners:   make([]uint32, 0, capacity),
		values:   make([]T, 0, capacity),
	}
}

func (c *column[T]) tag() typetag.Tag {
	return c.compTag
}

func (c *column[T]) name() string {
	return c.compName
}

func (c *column[T]) len() int {
	return len(c.values)
}

func (c *column[T]) members() bitmap.Bitmap {
	return c.entities
}

func (c *column[T]) has(idx uint32) bool {
	_, ok := c.rows.row(idx)
	return ok
}

// set inserts or overwrites the component of an entity. Returns true if the entity didn't have
// one before.
func (c *column[T]) set(idx uint32, component T) bool {
	if row, ok := c.rows.row(idx); ok {
		c.values[row] = component
		return false
	}

	c.rows.bind(idx, len(c.values))
	c.owners = append(c.owners, idx)
	c.values = append(c.values, component)
	c.entities.Set(idx)
	assert.That(len(c.owners) == len(c.values), "column %s owners and values out of sync", c.compName)
	return true
}

// get returns a pointer to the stored component. The pointer is valid until the next insert or
// remove on this column.
func (c *column[T]) get(idx uint32) (*T, bool) {
	row, ok := c.rows.row(idx)
	if !ok {
		return nil, false
	}
	return &c.values[row], true
}

func (c *column[T]) getAbstract(idx uint32) (Component, bool) {
	ptr, ok := c.get(idx)
	if !ok {
		return nil, false
	}
	return *ptr, true
}

// apply runs fn on a copy of the entity's component and stores the copy only if fn succeeds, so
// a failing fn leaves the column untouched. fn receives a *T. The row is looked up again before
// the write because fn may add or remove components of this type. Returns false if the entity
// has no component here, before or after fn.
func (c *column[T]) apply(idx uint32, fn func(target any) error) (bool, error) {
	row, ok := c.rows.row(idx)
	if !ok {
		return false, nil
	}

	working := c.values[row]
	if err := fn(&working); err != nil {
		return true, err
	}

	row, ok = c.rows.row(idx)
	if !ok {
		return false, nil
	}
	c.values[row] = working
	return true, nil
}

// remove deletes the component of an entity by swapping the last row into its place. Returns
// true if there was one.
func (c *column[T]) remove(idx uint32) bool {
	row, ok := c.rows.row(idx)
	if !ok {
		return false
	}

	last := len(c.values) - 1
	if row != last {
		moved := c.owners[last]
		c.values[row] = c.values[last]
		c.owners[row] = moved
		c.rows.bind(moved, row)
	}

	var zero T
	c.values[last] = zero
	c.values = c.values[:last]
	c.owners = c.owners[:last]
	c.rows.unbind(idx)
	c.entities.Remove(idx)

	assert.That(c.entities.Count() == len(c.values), "column %s reverse index out of sync", c.compName)
	return true
}

// toColumn downcasts an abstract column to its concrete type. The column was looked up by the
// tag derived from T, so a mismatch is a broken invariant, not a user error.
func toColumn[T Component](col abstractColumn) *column[T] {
	concrete, ok := col.(*column[T])
	assert.That(ok, "column %s is not of the requested component type", col.name())
	return concrete
}
