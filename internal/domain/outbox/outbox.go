package outbox

import "context"

// Event is a domain event. EventName routes it to subscribers; EventKey
// groups related events (partition key, subject suffix).
type Event interface {
	EventName() string
	EventKey() string
}

// Handler processes a published event.
type Handler func(ctx context.Context, e Event) error

// Publisher hands events to a sink: the in-process bus or an external broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber registers handlers for event names.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// NopPublisher drops every event.
func NopPublisher() Publisher { return nopPublisher{} }
