// Package bench drives comparative load tests across broker kinds through
// the runtime, synchronously or as cancellable background runs.
package bench

import (
	"time"

	"brokerlab/internal/broker"
)

// Result statuses for a per-broker benchmark
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Request describes one comparative load test. Zero values for
// MessageCount, Destination, and PayloadSize fall back to the configured
// benchmark defaults.
type Request struct {
	Kinds        []broker.Kind
	MessageCount int
	Destination  string
	PayloadSize  int
}

// BrokerResult holds the outcome of one broker kind's test
type BrokerResult struct {
	Kind               broker.Kind
	TotalMessages      int
	SuccessfulMessages int
	ElapsedMillis      int64
	Throughput         float64 // successful messages per second
	Status             string
	Reason             string // set when Status is ERROR
}

// errorResult records a kind whose test could not run at all
func errorResult(kind broker.Kind, reason string) BrokerResult {
	return BrokerResult{
		Kind:   kind,
		Status: StatusError,
		Reason: reason,
	}
}

// Result aggregates per-broker outcomes for one run
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Cancelled  bool
	Brokers    []BrokerResult
}

// throughput computes successful messages per second, 0 when elapsed is 0
func throughput(successful int, elapsedMillis int64) float64 {
	if elapsedMillis == 0 {
		return 0
	}
	return float64(successful) * 1000 / float64(elapsedMillis)
}
