package broker

import (
	"errors"
	"fmt"
)

var (
	// ErrNotInitialized is returned when the runtime is used before Initialize.
	ErrNotInitialized = errors.New("broker runtime is not initialized")

	// ErrBrokerUnavailable is returned for unknown or unconfigured broker kinds.
	ErrBrokerUnavailable = errors.New("broker is not available")

	// ErrNotConnected is returned when an operation requires a live connection.
	ErrNotConnected = errors.New("broker is not connected")
)

// ConnectionError wraps a native connect failure
type ConnectionError struct {
	Kind Kind
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s broker: connect failed: %v", e.Kind, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// SendError wraps a publish failure
type SendError struct {
	Kind        Kind
	Destination string
	Err         error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s broker: send to %q failed: %v", e.Kind, e.Destination, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// SubscriptionError wraps a consume-setup failure
type SubscriptionError struct {
	Kind        Kind
	Destination string
	Err         error
}

func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("%s broker: subscribe to %q failed: %v", e.Kind, e.Destination, e.Err)
}

func (e *SubscriptionError) Unwrap() error { return e.Err }
