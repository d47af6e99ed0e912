// Package bus provides the pub/sub primitive the relay fans messages out
// with. The relay only depends on the Broadcaster interface; the production
// implementation is NATS, usually embedded in-process.
package bus

// Handler is invoked for every message delivered on a subscribed topic.
// Implementations of Broadcaster call it from their own delivery goroutine;
// handlers must never block.
type Handler func(data []byte)

// Subscription is one live topic subscription.
type Subscription interface {
	Unsubscribe() error
}

// Broadcaster is an ordered-per-topic, at-least-once, in-process
// broadcast bus.
type Broadcaster interface {
	Publish(topic string, data []byte) error
	Subscribe(topic string, h Handler) (Subscription, error)
	Close()
}
