package bus

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// EmbeddedServer wraps an in-process NATS server bound to localhost.
type EmbeddedServer struct {
	server *server.Server
}

// StartEmbedded creates and starts an embedded NATS server on a random
// port, suitable for in-process use only.
func StartEmbedded() (*EmbeddedServer, error) {
	opts := &server.Options{
		Host:   "127.0.0.1",
		Port:   -1, // Random available port
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(5 * time.Second) {
		return nil, fmt.Errorf("NATS server not ready after 5 seconds")
	}

	return &EmbeddedServer{server: ns}, nil
}

// ClientURL returns the URL for connecting to this server.
func (e *EmbeddedServer) ClientURL() string {
	return e.server.ClientURL()
}

// Running reports whether the server is accepting connections.
func (e *EmbeddedServer) Running() bool {
	return e.server.Running()
}

// Shutdown stops the embedded server.
func (e *EmbeddedServer) Shutdown() {
	e.server.Shutdown()
}
