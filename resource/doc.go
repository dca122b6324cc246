// Package resource tracks persistent objects: host-side identities that
// carry a foreign handle from one exchange to the next.
//
// # Lifecycle
//
//	Create        -> StateCreated   (no foreign handle yet)
//	Store         -> StateActive    (handle returned by a foreign call)
//	Free          -> StateFreed     (terminal, entry kept as tombstone)
//
// Handles are assigned sequentially from 1 and never reused. Using or
// freeing an unknown or freed handle is an errors.KindUsage error.
//
//	table := resource.NewTable()
//	h := table.Create()
//
//	// after an exchange returned handle 7 from module "model"
//	table.Store(h, resource.ForeignHandle("model", 7))
//
//	// the returned Foreign is released by the caller
//	f, err := table.Free(h)
//
// # Observers
//
// Observers see every lifecycle change:
//
//	stop := table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("object %d %s: %s", e.Handle, e.Type, e.Foreign)
//	}))
//	defer stop()
//
// # Thread Safety
//
// Table is not safe for concurrent use.
package resource
