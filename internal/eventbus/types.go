// Package eventbus implements the typed publish/subscribe primitive named
// in spec §9 Design Notes as the replacement for "callbacks-as-lists":
// the backend's EDMO connect/disconnect and session-removal notifications
// and the admin console's publish/subscribe commands flow through one Bus.
// Motor-update subscriptions and player-channel callbacks do not use it.
// Adapted from the teacher's shared/event_bus package.
package eventbus

import "edmoserver/internal/collections"

// Event is anything publishable on the bus. Type partitions events into
// independent subscription streams (e.g. "edmo.connected", "edmo.disconnected").
type Event interface {
	Type() string
	Data() interface{}
}

// Handler receives events published for the types it subscribed to.
type Handler func(Event)

// Subscriber is an opaque handle returned by Subscribe, used to Unsubscribe
// later. Comparable by ID so it can key a map.
type Subscriber struct {
	ID string
}

// Bus is a thread-safe typed publish/subscribe bus. Publishing to a type
// with no subscribers is a no-op; handlers run in their own goroutine so a
// slow subscriber never blocks the publisher or other subscribers.
type Bus struct {
	subscriptions *collections.SafeMap[string, *collections.Set[Subscriber]]
	handlers      *collections.SafeMap[Subscriber, Handler]
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subscriptions: collections.NewSafeMap[string, *collections.Set[Subscriber]](),
		handlers:      collections.NewSafeMap[Subscriber, Handler](),
	}
}
