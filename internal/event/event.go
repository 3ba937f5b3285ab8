// Package event implements owner-scoped subscriptions to events that
// are fired by objects the compositor does not own, such as devices,
// surfaces and outputs.
//
// Every subscription is represented by a Listener. Removing a Listener
// is idempotent and is safe from inside of the handler that it
// detaches, from inside of any other handler, and after the Source has
// already been closed. Owners are expected to remove all of their
// subscriptions as the very first step of their own destruction.
package event

// Remover detaches a subscription.
type Remover interface {
	Remove()
}

// Listener is a single subscription. The zero value and the nil
// pointer are both valid, already removed listeners.
type Listener struct {
	remove func()
}

// Func returns a Listener that calls f the first time that it is
// removed. It is used to adapt foreign listener types.
func Func(f func()) *Listener {
	return &Listener{remove: f}
}

// Remove detaches the subscription. Calls after the first do nothing.
func (l *Listener) Remove() {
	if (l == nil) || (l.remove == nil) {
		return
	}

	remove := l.remove
	l.remove = nil
	remove()
}

// Active reports whether the listener has not yet been removed.
func (l *Listener) Active() bool {
	return (l != nil) && (l.remove != nil)
}

// Source is an event slot that handlers can subscribe to. The zero
// value is ready to use.
type Source[T any] struct {
	next     uint64
	order    []uint64
	handlers map[uint64]func(T)
	emitting int
	closed   bool
}

// Subscribe registers h to be called every time that the event is
// emitted. Subscribing to a closed Source returns an inert Listener.
func (s *Source[T]) Subscribe(h func(T)) *Listener {
	if s.closed {
		return &Listener{}
	}
	if s.handlers == nil {
		s.handlers = make(map[uint64]func(T))
	}

	s.next++
	id := s.next
	s.handlers[id] = h
	s.order = append(s.order, id)

	return &Listener{remove: func() { s.unsubscribe(id) }}
}

func (s *Source[T]) unsubscribe(id uint64) {
	delete(s.handlers, id)
	if s.emitting == 0 {
		s.compact()
	}
}

func (s *Source[T]) compact() {
	if len(s.order) == len(s.handlers) {
		return
	}

	order := s.order[:0]
	for _, id := range s.order {
		if _, ok := s.handlers[id]; ok {
			order = append(order, id)
		}
	}
	clear(s.order[len(order):])
	s.order = order
}

// Emit calls every handler in subscription order. Handlers removed
// during the emission are not called, and handlers subscribed during
// the emission are not called until the next one.
func (s *Source[T]) Emit(v T) {
	if s.closed {
		return
	}

	s.emitting++
	defer func() {
		s.emitting--
		if s.emitting == 0 {
			s.compact()
		}
	}()

	n := len(s.order)
	for i := 0; i < n; i++ {
		h, ok := s.handlers[s.order[i]]
		if !ok {
			continue
		}
		h(v)
		if s.closed {
			return
		}
	}
}

// Close detaches every handler and makes further emissions and
// subscriptions no-ops. It models the destruction of the object that
// owns the event.
func (s *Source[T]) Close() {
	s.closed = true
	clear(s.handlers)
	s.order = nil
}

// Len returns the number of handlers currently subscribed.
func (s *Source[T]) Len() int {
	return len(s.handlers)
}

// Group collects the subscriptions of a single owner so that they can
// be removed together.
type Group struct {
	rs []Remover
}

// Add adds subscriptions to the group. Nil removers are ignored.
func (g *Group) Add(rs ...Remover) {
	for _, r := range rs {
		if r != nil {
			g.rs = append(g.rs, r)
		}
	}
}

// Remove removes every subscription in the group in reverse order of
// addition and empties it.
func (g *Group) Remove() {
	rs := g.rs
	g.rs = nil
	for i := len(rs) - 1; i >= 0; i-- {
		rs[i].Remove()
	}
}

// Len returns the number of subscriptions in the group.
func (g *Group) Len() int {
	return len(g.rs)
}
