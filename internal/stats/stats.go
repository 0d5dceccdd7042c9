package stats

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// StatsCollector manages runtime-wide messaging statistics
type StatsCollector struct {
	StartTime        time.Time
	MessagesSent     uint64
	MessagesReceived uint64
	BenchmarksRun    uint64
	Errors           uint64
}

// NewStatsCollector creates a new stats collector
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		StartTime: time.Now(),
	}
}

// IncSent records one sent message
func (s *StatsCollector) IncSent() {
	atomic.AddUint64(&s.MessagesSent, 1)
}

// IncReceived records one received message
func (s *StatsCollector) IncReceived() {
	atomic.AddUint64(&s.MessagesReceived, 1)
}

// IncBenchmarks records one completed benchmark run
func (s *StatsCollector) IncBenchmarks() {
	atomic.AddUint64(&s.BenchmarksRun, 1)
}

// IncErrors records one error
func (s *StatsCollector) IncErrors() {
	atomic.AddUint64(&s.Errors, 1)
}

// GetStats returns current statistics
func (s *StatsCollector) GetStats() map[string]interface{} {
	uptime := time.Since(s.StartTime)
	return map[string]interface{}{
		"uptime":            uptime.String(),
		"messages_sent":     atomic.LoadUint64(&s.MessagesSent),
		"messages_received": atomic.LoadUint64(&s.MessagesReceived),
		"benchmarks_run":    atomic.LoadUint64(&s.BenchmarksRun),
		"errors":            atomic.LoadUint64(&s.Errors),
	}
}

// GetStatsJSON returns stats as JSON
func (s *StatsCollector) GetStatsJSON() ([]byte, error) {
	return json.Marshal(s.GetStats())
}

// SendRate calculates the messages-per-second send rate since start
func (s *StatsCollector) SendRate() float64 {
	uptime := time.Since(s.StartTime).Seconds()
	if uptime <= 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&s.MessagesSent)) / uptime
}
