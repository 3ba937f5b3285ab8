// Package registry provides an insertion-ordered arena that hands out
// stable identifiers, so that entries can be removed from inside of
// callbacks that are in the middle of iterating over it.
package registry

import (
	"iter"

	"deedles.dev/xiter"
)

// ID identifies an entry. IDs are never reused by a Registry.
type ID int

// hole marks a removed entry in the order slice.
const hole ID = -1

// Registry is an insertion-ordered set of values keyed by ID. The zero
// value is ready to use.
//
// Removal leaves a hole in the insertion order instead of shifting it.
// The holes are squeezed out once they make up half of it.
type Registry[T any] struct {
	next  ID
	order []ID
	pos   map[ID]int
	items map[ID]T
	holes int
}

// Add inserts v and returns its new ID.
func (r *Registry[T]) Add(v T) ID {
	if r.items == nil {
		r.items = make(map[ID]T)
		r.pos = make(map[ID]int)
	}

	id := r.next
	r.next++
	r.items[id] = v
	r.pos[id] = len(r.order)
	r.order = append(r.order, id)
	return id
}

// Get returns the value with the given ID.
func (r *Registry[T]) Get(id ID) (v T, ok bool) {
	v, ok = r.items[id]
	return v, ok
}

// Remove deletes the entry with the given ID and reports whether it
// existed.
func (r *Registry[T]) Remove(id ID) bool {
	i, ok := r.pos[id]
	if !ok {
		return false
	}

	delete(r.items, id)
	delete(r.pos, id)
	r.order[i] = hole
	r.holes++

	if r.holes*2 >= len(r.order) {
		r.compact()
	}
	return true
}

func (r *Registry[T]) compact() {
	order := make([]ID, 0, len(r.items))
	for _, id := range r.order {
		if id == hole {
			continue
		}
		r.pos[id] = len(order)
		order = append(order, id)
	}
	r.order = order
	r.holes = 0
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	return len(r.items)
}

// entries yields the live entries without guarding against changes
// made during the iteration.
func (r *Registry[T]) entries() iter.Seq2[ID, T] {
	return func(yield func(ID, T) bool) {
		for _, id := range r.order {
			if id == hole {
				continue
			}
			if !yield(id, r.items[id]) {
				return
			}
		}
	}
}

// All yields every entry in insertion order. Entries removed while
// the iteration is in progress are skipped and entries added during it
// are not yielded.
func (r *Registry[T]) All() iter.Seq2[ID, T] {
	return func(yield func(ID, T) bool) {
		ids := append([]ID(nil), r.order...)
		for _, id := range ids {
			v, ok := r.items[id]
			if !ok {
				continue
			}
			if !yield(id, v) {
				return
			}
		}
	}
}

// Values returns a snapshot of every value in insertion order.
func (r *Registry[T]) Values() []T {
	return xiter.CollectSize(xiter.V2(r.entries()), r.Len())
}

// Find returns the first entry, in insertion order, for which match
// returns true. match must not change the registry.
func (r *Registry[T]) Find(match func(T) bool) (id ID, v T, ok bool) {
	p, ok := xiter.Find(xiter.ToPair(r.entries()), func(p xiter.Pair[ID, T]) bool {
		return match(p.V2)
	})
	return p.V1, p.V2, ok
}

// First returns the oldest entry.
func (r *Registry[T]) First() (id ID, v T, ok bool) {
	p, ok := xiter.Find(xiter.ToPair(r.entries()), func(xiter.Pair[ID, T]) bool { return true })
	return p.V1, p.V2, ok
}
