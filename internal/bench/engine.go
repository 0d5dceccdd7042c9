package bench

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"brokerlab/config"
	"brokerlab/internal/broker"
	"brokerlab/internal/logger"
	"brokerlab/internal/metrics"
)

// run tracks one asynchronous benchmark execution
type run struct {
	id        string
	cancelled atomic.Bool
	running   atomic.Bool
}

// Engine executes benchmark requests against the broker runtime.
// Synchronous runs execute on the caller's goroutine; asynchronous runs
// each occupy one goroutine tracked in the active-run table until they
// finish or are stopped.
type Engine struct {
	runtime *broker.Runtime
	cfg     config.BenchConfig
	log     *logger.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	runs map[string]*run
	wg   sync.WaitGroup
}

// NewEngine creates a benchmark engine over the runtime
func NewEngine(rt *broker.Runtime, cfg config.BenchConfig, log *logger.Logger, m *metrics.Metrics) *Engine {
	return &Engine{
		runtime: rt,
		cfg:     cfg,
		log:     log,
		metrics: m,
		runs:    make(map[string]*run),
	}
}

// RunSync executes the request on the calling goroutine and returns the
// aggregated result.
func (e *Engine) RunSync(req *Request) (*Result, error) {
	if !e.runtime.Initialized() {
		return nil, broker.ErrNotInitialized
	}
	r := &run{id: uuid.NewString()}
	return e.execute(r, req), nil
}

// StartAsync submits the request to a background goroutine and returns an
// opaque run identifier immediately.
func (e *Engine) StartAsync(req *Request) (string, error) {
	if !e.runtime.Initialized() {
		return "", broker.ErrNotInitialized
	}

	r := &run{id: uuid.NewString()}
	r.running.Store(true)

	e.mu.Lock()
	e.runs[r.id] = r
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.IncBenchmarkRuns()
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			r.running.Store(false)
			e.mu.Lock()
			delete(e.runs, r.id)
			e.mu.Unlock()
			if e.metrics != nil {
				e.metrics.DecBenchmarkRuns()
			}
		}()

		result := e.execute(r, req)
		e.log.Info("benchmark run finished",
			"runId", r.id,
			"cancelled", result.Cancelled,
			"brokers", len(result.Brokers))
	}()

	return r.id, nil
}

// Stop requests cooperative cancellation of a run. It returns true when
// the run existed and had not already finished.
func (e *Engine) Stop(runID string) bool {
	e.mu.Lock()
	r, ok := e.runs[runID]
	e.mu.Unlock()

	if !ok || !r.running.Load() {
		return false
	}
	r.cancelled.Store(true)
	e.log.Info("benchmark run cancellation requested", "runId", runID)
	return true
}

// StopAll cancels every tracked run
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.runs {
		r.cancelled.Store(true)
	}
}

// Status returns a snapshot of run ID to running state
func (e *Engine) Status() map[string]bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	status := make(map[string]bool, len(e.runs))
	for id, r := range e.runs {
		status[id] = r.running.Load()
	}
	return status
}

// Shutdown stops all runs and waits up to the given duration for their
// goroutines to drain before giving up.
func (e *Engine) Shutdown(wait time.Duration) {
	e.StopAll()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(wait):
		e.log.Warn("benchmark engine shutdown timed out", "wait", wait)
	}
}

// execute runs the per-broker tests sequentially. Cancellation is checked
// between messages so a stop takes effect mid-broker, not only between
// brokers.
func (e *Engine) execute(r *run, req *Request) *Result {
	count := req.MessageCount
	if count <= 0 {
		count = e.cfg.MessageCount
	}
	destination := req.Destination
	if destination == "" {
		destination = e.cfg.Destination
	}
	payloadSize := req.PayloadSize
	if payloadSize <= 0 {
		payloadSize = e.cfg.PayloadSize
	}
	payload := strings.Repeat("x", payloadSize)

	result := &Result{
		RunID:     r.id,
		StartedAt: time.Now(),
	}

	for _, kind := range req.Kinds {
		if r.cancelled.Load() {
			result.Cancelled = true
			break
		}
		result.Brokers = append(result.Brokers, e.testBroker(r, kind, destination, payload, count))
	}

	result.FinishedAt = time.Now()
	if r.cancelled.Load() {
		result.Cancelled = true
	}
	e.runtime.Stats().IncBenchmarks()
	return result
}

// testBroker sends count messages to one broker kind, counting successes.
// A failed send is a non-fatal per-message failure; only a kind that
// cannot run at all yields an error result.
func (e *Engine) testBroker(r *run, kind broker.Kind, destination, payload string, count int) (br BrokerResult) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("benchmark test panicked", "broker", kind, "panic", rec)
			br = errorResult(kind, fmt.Sprintf("panic: %v", rec))
		}
	}()

	if _, held := e.runtime.Status()[kind]; !held {
		return errorResult(kind, fmt.Sprintf("%s broker is not available", kind))
	}

	successful := 0
	start := time.Now()

	for i := 0; i < count; i++ {
		if r.cancelled.Load() {
			break
		}

		_, err := e.runtime.Send(&broker.OutboundMessage{
			Kind:        kind,
			Destination: destination,
			Payload:     payload,
		})
		if err != nil {
			e.log.Debug("benchmark send failed",
				"broker", kind, "message", i, "error", err)
			continue
		}
		successful++
	}

	elapsed := time.Since(start).Milliseconds()
	return BrokerResult{
		Kind:               kind,
		TotalMessages:      count,
		SuccessfulMessages: successful,
		ElapsedMillis:      elapsed,
		Throughput:         throughput(successful, elapsed),
		Status:             StatusSuccess,
	}
}
