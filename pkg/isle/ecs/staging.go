package ecs

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/isle-engine/isle/pkg/isle/typetag"
)

// slot addresses one component: an entity and a component type.
type slot struct {
	entity EntityKey
	tag    typetag.Tag
}

// initialSlotCapacity is the starting capacity of a slot's mutation queue.
const initialSlotCapacity = 4

// stagingQueue holds the pending mutations of every slot. It has its own lock because it is
// written through shared access to the store.
type stagingQueue struct {
	mu      sync.Mutex
	pending map[slot][]Mutation
}

func newStagingQueue() stagingQueue {
	return stagingQueue{pending: make(map[slot][]Mutation)}
}

func (q *stagingQueue) enqueue(target slot, m Mutation) {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued, ok := q.pending[target]
	if !ok {
		queued = make([]Mutation, 0, initialSlotCapacity)
	}
	q.pending[target] = append(queued, m)
}

// drain takes every mutation queued for a slot. Later enqueues start a fresh queue, so they are
// left for the next drain.
func (q *stagingQueue) drain(target slot) []Mutation {
	q.mu.Lock()
	defer q.mu.Unlock()

	queued := q.pending[target]
	delete(q.pending, target)
	return queued
}

func (q *stagingQueue) len(target slot) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[target])
}

// slots returns the slots with pending mutations ordered by entity key, then tag.
func (q *stagingQueue) slots() []slot {
	q.mu.Lock()
	slots := make([]slot, 0, len(q.pending))
	for s := range q.pending {
		slots = append(slots, s)
	}
	q.mu.Unlock()

	slices.SortFunc(slots, func(a, b slot) int {
		if c := cmp.Compare(a.entity, b.entity); c != 0 {
			return c
		}
		return cmp.Compare(a.tag, b.tag)
	})
	return slots
}

// MutationError reports a staged mutation that failed during Commit. It matches
// ErrMutationFailed with errors.Is and unwraps to the mutation's own error.
type MutationError struct {
	Entity    EntityKey
	Tag       typetag.Tag
	Kind      MutationKind
	Index     int // Position of the failed mutation in the batch, also the number applied before it
	Discarded int // Mutations after the failure that were dropped
	Err       error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%v: entity %s %s: %s mutation %d failed, %d discarded: %v",
		ErrMutationFailed, e.Entity, e.Tag, e.Kind, e.Index, e.Discarded, e.Err)
}

func (e *MutationError) Unwrap() error {
	return e.Err
}

func (e *MutationError) Is(target error) bool {
	return target == ErrMutationFailed //nolint:errorlint // sentinel identity
}

// Stage queues a mutation for the entity's component with the given tag. It is safe to call
// concurrently and only needs shared access to the store. Nothing changes until Commit.
func (s *Store) Stage(key EntityKey, tag typetag.Tag, m Mutation) {
	s.staged.enqueue(slot{entity: key, tag: tag}, m)
}

// Stage queues an update of the entity's component of type T.
func Stage[T Component](s *Store, key EntityKey, fn func(*T) error) {
	s.Stage(key, typetag.TagOf[T](s.registry), Update(fn))
}

// Pending returns the number of mutations waiting for the slot's next commit.
func (s *Store) Pending(key EntityKey, tag typetag.Tag) int {
	return s.staged.len(slot{entity: key, tag: tag})
}

// Commit applies the mutations queued for the entity's component with the given tag, in the
// order they were staged. It needs exclusive access to the store.
//
// Only mutations queued before the call are applied; anything staged while they run waits for
// the next Commit. Each mutation works on a copy of the component that is stored only if it
// succeeds. If a mutation fails, the rest of the batch is discarded and a *MutationError is
// returned. The component keeps the state left by the mutations before it. If the component is
// missing, or goes missing partway, the remaining mutations are dropped and Commit returns nil.
func (s *Store) Commit(key EntityKey, tag typetag.Tag) error {
	batch := s.staged.drain(slot{entity: key, tag: tag})

	for i, m := range batch {
		present, err := s.applyStaged(key, tag, m)
		if err != nil {
			return &MutationError{
				Entity:    key,
				Tag:       tag,
				Kind:      m.kind,
				Index:     i,
				Discarded: len(batch) - i - 1,
				Err:       err,
			}
		}
		if !present {
			s.log.Debug().
				Str("entity", string(key)).
				Stringer("tag", tag).
				Int("dropped", len(batch)-i).
				Msg("Dropped staged mutations for missing component")
			return nil
		}
	}
	return nil
}

// CommitAll commits every slot with pending mutations, ordered by entity key then tag. A failing
// slot doesn't stop the others; all failures are returned joined together.
func (s *Store) CommitAll() error {
	var errs []error
	for _, target := range s.staged.slots() {
		if err := s.Commit(target.entity, target.tag); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// applyStaged runs one mutation against the stored component. The column and entity are looked
// up on every call since an earlier mutation may have changed the store.
func (s *Store) applyStaged(key EntityKey, tag typetag.Tag, m Mutation) (bool, error) {
	col := s.column(tag)
	if col == nil {
		return false, nil
	}
	idx, ok := s.entities.lookup(key)
	if !ok {
		return false, nil
	}
	return col.apply(idx, m.apply)
}
