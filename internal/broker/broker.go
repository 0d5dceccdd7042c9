package broker

// Adapter is the capability set every substrate implementation satisfies.
//
// Connect is idempotent; a connect failure leaves the adapter disconnected.
// Send requires a live connection and returns the adapter-assigned delivery
// ID. Subscribe starts exactly one background worker per distinct
// destination; subscribing twice to the same destination is a silent no-op
// that keeps the first handler active. Disconnect never fails: teardown
// errors are logged so shutdown sequences always run to completion.
type Adapter interface {
	// Kind returns the substrate this adapter drives
	Kind() Kind

	// Connect establishes the native connection
	Connect() error

	// Disconnect stops all subscriptions and releases the native connection
	Disconnect()

	// Connected reports the current connection state
	Connected() bool

	// Healthy reports adapter health; defaults to Connected
	Healthy() bool

	// Send publishes a message and returns its delivery ID
	Send(msg *OutboundMessage) (string, error)

	// Subscribe starts a consumer worker for the destination
	Subscribe(destination string, handler Handler) error

	// Unsubscribe stops the destination's worker; unknown destinations are a no-op
	Unsubscribe(destination string) error

	// UnsubscribeAll stops every active subscription
	UnsubscribeAll()
}
