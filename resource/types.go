package resource

import "fmt"

// Handle is the host-side identity of a persistent object.
// Handle 0 is reserved and always invalid.
type Handle uint32

// State is the lifecycle state of an object.
type State uint8

const (
	// StateCreated objects exist but no exchange has stored a handle yet.
	StateCreated State = iota + 1
	// StateActive objects hold a handle returned by a foreign function.
	StateActive
	// StateFreed is terminal. The entry stays as a tombstone.
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateFreed:
		return "freed"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// ForeignKind tags a Foreign value.
type ForeignKind uint8

const (
	ForeignNone ForeignKind = iota
	ForeignValue
)

// Foreign is the handle a foreign function returned for an object, tagged
// with the module that owns it. The zero value holds no handle.
type Foreign struct {
	Owner string
	Value uint32
	Kind  ForeignKind
}

// ForeignHandle returns a Foreign holding v, owned by module owner.
func ForeignHandle(owner string, v uint32) Foreign {
	return Foreign{Kind: ForeignValue, Value: v, Owner: owner}
}

// Present reports whether f holds a handle.
func (f Foreign) Present() bool {
	return f.Kind == ForeignValue
}

func (f Foreign) String() string {
	if !f.Present() {
		return "none"
	}
	return fmt.Sprintf("%s#%d", f.Owner, f.Value)
}

// Object is a snapshot of one table entry.
type Object struct {
	Foreign   Foreign
	Handle    Handle
	Exchanges int
	State     State
}

// EventType identifies an object lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventUpdated
	EventFreed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventUpdated:
		return "updated"
	case EventFreed:
		return "freed"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event describes one lifecycle change. Previous is the foreign handle the
// object held before the change.
type Event struct {
	Foreign  Foreign
	Previous Foreign
	Handle   Handle
	Type     EventType
}

// Observer receives notifications about object lifecycle events.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnObjectEvent(e Event) { f(e) }
