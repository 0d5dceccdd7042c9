package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
queue:
  urls:
    - nats://localhost:4222
  clientId: test
  defaultDestination: events
log:
  brokers:
    - localhost:9092
  group: test
  defaultDestination: events
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.NotNil(t, cfg.Queue)
	assert.Equal(t, []string{"nats://localhost:4222"}, cfg.Queue.URLs)
	assert.NotNil(t, cfg.Log)
	assert.Nil(t, cfg.Amqp)
	assert.Nil(t, cfg.Socket)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
queue:
  urls:
    - nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "stdout", cfg.Logging.OutputPath)
	assert.Equal(t, "json", cfg.Logging.Encoding)
	assert.Equal(t, ":2112", cfg.Metrics.Address)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 3, cfg.Common.RetryAttempts)
	assert.Equal(t, "1s", cfg.Common.RetryDelay)
	assert.Equal(t, 1<<20, cfg.Common.MaxMessageSize)
	assert.Equal(t, 100, cfg.Benchmark.MessageCount)
	assert.Equal(t, 256, cfg.Benchmark.PayloadSize)
	assert.Equal(t, "benchmark", cfg.Benchmark.Destination)
}

func TestLoadPollTimeoutDefault(t *testing.T) {
	path := writeConfig(t, `
log:
  brokers:
    - localhost:9092
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1s", cfg.Log.PollTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "queue: [not a mapping")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "queue without urls",
			content: "queue:\n  clientId: test\n",
		},
		{
			name:    "amqp without uri",
			content: "amqp:\n  prefetchCount: 1\n",
		},
		{
			name:    "log without brokers",
			content: "log:\n  group: test\n",
		},
		{
			name:    "log poll timeout over bound",
			content: "log:\n  brokers:\n    - localhost:9092\n  pollTimeout: 2s\n",
		},
		{
			name:    "socket without url",
			content: "socket:\n  handshakeTimeout: 5s\n",
		},
		{
			name:    "invalid log level",
			content: "logging:\n  level: verbose\n",
		},
		{
			name:    "invalid log encoding",
			content: "logging:\n  encoding: xml\n",
		},
		{
			name:    "invalid retry delay",
			content: "common:\n  retryDelay: soon\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyOverrides(t *testing.T) {
	path := writeConfig(t, `
queue:
  urls:
    - nats://localhost:4222
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	cfg.ApplyOverrides(":9999", "/m", 42)
	assert.Equal(t, ":9999", cfg.Metrics.Address)
	assert.Equal(t, "/m", cfg.Metrics.Path)
	assert.Equal(t, 42, cfg.Benchmark.MessageCount)

	// zero values leave config untouched
	cfg.ApplyOverrides("", "", 0)
	assert.Equal(t, ":9999", cfg.Metrics.Address)
	assert.Equal(t, 42, cfg.Benchmark.MessageCount)
}
