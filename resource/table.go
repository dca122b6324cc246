package resource

import (
	"github.com/wippyai/simbridge/errors"
)

type entry struct {
	foreign   Foreign
	exchanges int
	state     State
}

// Table holds persistent objects. Handles are assigned sequentially and
// never reused: freed objects remain as tombstones so that late use of a
// freed handle is detected rather than aliasing a newer object.
//
// Table is not safe for concurrent use.
type Table struct {
	entries   []entry // index = handle - 1
	observers []subscription
	nextSub   int
	live      int
}

type subscription struct {
	o  Observer
	id int
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{}
}

// Create adds an object in StateCreated and returns its handle.
func (t *Table) Create() Handle {
	t.entries = append(t.entries, entry{state: StateCreated})
	t.live++
	h := Handle(len(t.entries))
	t.notify(Event{Type: EventCreated, Handle: h})
	return h
}

// Get returns a snapshot of the object. Unknown handles report false;
// freed objects are returned with StateFreed.
func (t *Table) Get(h Handle) (Object, bool) {
	e := t.entry(h)
	if e == nil {
		return Object{}, false
	}
	return Object{Handle: h, State: e.state, Foreign: e.foreign, Exchanges: e.exchanges}, true
}

// Usable returns the object if it can take part in an exchange.
// Unknown and freed handles are usage errors.
func (t *Table) Usable(h Handle) (Object, error) {
	obj, ok := t.Get(h)
	if !ok {
		return Object{}, errors.Usage("unknown object %d", h)
	}
	if obj.State == StateFreed {
		return Object{}, errors.Usage("object %d used after free", h)
	}
	return obj, nil
}

// Store records the foreign handle returned by an exchange on object h and
// moves it to StateActive. The previous handle is replaced, not released.
func (t *Table) Store(h Handle, f Foreign) error {
	if _, err := t.Usable(h); err != nil {
		return err
	}
	e := t.entry(h)
	prev := e.foreign
	e.foreign = f
	e.state = StateActive
	e.exchanges++
	t.notify(Event{Type: EventUpdated, Handle: h, Foreign: f, Previous: prev})
	return nil
}

// Free moves object h to StateFreed and returns the foreign handle it held
// so the caller can release it. Freeing twice is a usage error.
func (t *Table) Free(h Handle) (Foreign, error) {
	obj, ok := t.Get(h)
	if !ok {
		return Foreign{}, errors.Usage("free of unknown object %d", h)
	}
	if obj.State == StateFreed {
		return Foreign{}, errors.Usage("object %d freed twice", h)
	}
	e := t.entry(h)
	e.state = StateFreed
	e.foreign = Foreign{}
	t.live--
	t.notify(Event{Type: EventFreed, Handle: h, Previous: obj.Foreign})
	return obj.Foreign, nil
}

// Len returns the number of objects that are not freed.
func (t *Table) Len() int {
	return t.live
}

// Each calls fn for every object that is not freed, in handle order,
// until fn returns false.
func (t *Table) Each(fn func(Object) bool) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.state == StateFreed {
			continue
		}
		obj := Object{Handle: Handle(i + 1), State: e.state, Foreign: e.foreign, Exchanges: e.exchanges}
		if !fn(obj) {
			return
		}
	}
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it again.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{id: id, o: o})
	return func() {
		for i, s := range t.observers {
			if s.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

func (t *Table) entry(h Handle) *entry {
	if h == 0 || int(h) > len(t.entries) {
		return nil
	}
	return &t.entries[h-1]
}

func (t *Table) notify(e Event) {
	for _, s := range t.observers {
		s.o.OnObjectEvent(e)
	}
}
