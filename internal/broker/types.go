// Package broker defines the capability set every messaging substrate
// adapter satisfies, plus the registry and runtime that orchestrate them.
package broker

import (
	"sync/atomic"
	"time"
)

// Kind identifies a messaging substrate
type Kind string

const (
	// KindQueue is the NATS-backed queue broker
	KindQueue Kind = "queue"
	// KindAmqp is the RabbitMQ-backed AMQP broker
	KindAmqp Kind = "amqp"
	// KindLog is the Kafka-backed partitioned log broker
	KindLog Kind = "log"
	// KindSocket is the WebSocket-backed socket broker
	KindSocket Kind = "socket"
)

// Kinds lists every supported broker kind
func Kinds() []Kind {
	return []Kind{KindQueue, KindAmqp, KindLog, KindSocket}
}

// ConnectionState represents the state of an adapter's native connection
type ConnectionState string

const (
	// StateDisconnected indicates no native connection is held
	StateDisconnected ConnectionState = "disconnected"
	// StateConnected indicates the native connection is established
	StateConnected ConnectionState = "connected"
	// StateFailed indicates the last connection attempt failed
	StateFailed ConnectionState = "failed"
)

// StateTracker holds an adapter's connection state with atomic access.
// Transitions happen only through Connect/Disconnect on the owning adapter.
type StateTracker struct {
	v atomic.Value
}

// Set stores the current state
func (s *StateTracker) Set(state ConnectionState) {
	s.v.Store(state)
}

// Get returns the current state
func (s *StateTracker) Get() ConnectionState {
	if state, ok := s.v.Load().(ConnectionState); ok {
		return state
	}
	return StateDisconnected
}

// Connected reports whether the tracked state is Connected
func (s *StateTracker) Connected() bool {
	return s.Get() == StateConnected
}

// OutboundMessage is a substrate-agnostic send request
type OutboundMessage struct {
	Kind        Kind
	Destination string
	Payload     string
	Headers     map[string]string
}

// InboundMessage is a substrate-agnostic received message. Properties carry
// adapter-specific metadata: partition/offset for the log broker, delivery
// tag for the AMQP broker, subject for the queue broker.
type InboundMessage struct {
	Kind        Kind
	Destination string
	Payload     string
	MessageID   string
	ReceivedAt  time.Time
	Properties  map[string]string
}

// MessageResponse describes the outcome of a runtime send
type MessageResponse struct {
	Success     bool
	Kind        Kind
	Destination string
	DeliveryID  string
	SentAt      time.Time
}

// Handler consumes inbound messages delivered by a subscription worker
type Handler func(msg *InboundMessage)

// Listener receives every inbound message fanned out by the runtime.
// Implementations must be comparable (register pointer types) so
// RemoveListener can identify them.
type Listener interface {
	OnMessage(destination string, msg *InboundMessage) error
}
