package bus

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// NATSBroadcaster implements Broadcaster over a NATS connection.
type NATSBroadcaster struct {
	nc *nats.Conn
}

var _ Broadcaster = (*NATSBroadcaster)(nil)

// Connect dials the NATS server at the given URL.
func Connect(url string) (*NATSBroadcaster, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSBroadcaster{nc: nc}, nil
}

func (b *NATSBroadcaster) Publish(topic string, data []byte) error {
	return b.nc.Publish(topic, data)
}

func (b *NATSBroadcaster) Subscribe(topic string, h Handler) (Subscription, error) {
	sub, err := b.nc.Subscribe(topic, func(msg *nats.Msg) {
		h(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

func (b *NATSBroadcaster) Close() {
	b.nc.Close()
}
