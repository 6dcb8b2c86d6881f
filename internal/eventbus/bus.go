package eventbus

import (
	"github.com/google/uuid"

	"edmoserver/internal/collections"
)

// NewSubscriber mints a fresh subscriber handle with a random ID, following
// the teacher's event_bus/subscriber.go use of google/uuid.
func NewSubscriber() Subscriber {
	return Subscriber{ID: uuid.New().String()}
}

// Subscribe registers handler for events of eventType. If sub is the zero
// Subscriber, a fresh one is minted. Returns the subscriber handle to pass
// to Unsubscribe later.
func (b *Bus) Subscribe(eventType string, sub Subscriber, handler Handler) Subscriber {
	if sub.ID == "" {
		sub = NewSubscriber()
	}

	b.handlers.Set(sub, handler)

	set := b.subscriptions.GetOrDefault(eventType, collections.NewSet[Subscriber]())
	set.Add(sub)
	return sub
}

// Unsubscribe removes sub's registration for eventType.
func (b *Bus) Unsubscribe(eventType string, sub Subscriber) {
	if sub.ID == "" {
		return
	}
	if set, ok := b.subscriptions.Get(eventType); ok {
		set.Remove(sub)
	}
	b.handlers.Delete(sub)
}

// Publish delivers event to every subscriber of event.Type(), each in its
// own goroutine.
func (b *Bus) Publish(event Event) {
	if event == nil {
		return
	}
	set, ok := b.subscriptions.Get(event.Type())
	if !ok {
		return
	}
	for sub := range set.Iterate() {
		if handler, ok := b.handlers.Get(sub); ok {
			go handler(event)
		}
	}
}

// PublishData wraps data in a simpleEvent and publishes it, a convenience
// for callers that don't need a dedicated Event type.
func (b *Bus) PublishData(eventType string, data interface{}) {
	b.Publish(simpleEvent{eventType: eventType, data: data})
}

type simpleEvent struct {
	eventType string
	data      interface{}
}

func (e simpleEvent) Type() string      { return e.eventType }
func (e simpleEvent) Data() interface{} { return e.data }
