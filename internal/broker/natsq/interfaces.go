package natsq

import (
	"github.com/nats-io/nats.go"
)

// ConnectionManager handles the NATS connection lifecycle
type ConnectionManager interface {
	Connect() error
	Disconnect()
	IsConnected() bool
	Conn() *nats.Conn
}

// Publisher handles message publishing
type Publisher interface {
	Publish(destination, payload string, headers map[string]string) (string, error)
}
