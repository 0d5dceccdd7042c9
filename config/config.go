package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Queue     *QueueConfig  `yaml:"queue"`
	Amqp      *AmqpConfig   `yaml:"amqp"`
	Log       *LogBrokerCfg `yaml:"log"`
	Socket    *SocketConfig `yaml:"socket"`
	Common    CommonConfig  `yaml:"common"`
	Logging   LogConfig     `yaml:"logging"`
	Metrics   MetricsConfig `yaml:"metrics"`
	Benchmark BenchConfig   `yaml:"benchmark"`
}

// QueueConfig configures the NATS-backed queue broker.
type QueueConfig struct {
	URLs               []string `yaml:"urls"`
	ClientID           string   `yaml:"clientId"`
	Username           string   `yaml:"username"`
	Password           string   `yaml:"password"`
	DefaultDestination string   `yaml:"defaultDestination"`
}

// AmqpConfig configures the RabbitMQ-backed AMQP broker.
type AmqpConfig struct {
	URI                string `yaml:"uri"`
	Exchange           string `yaml:"exchange"`
	PrefetchCount      int    `yaml:"prefetchCount"`
	DefaultDestination string `yaml:"defaultDestination"`
}

// LogBrokerCfg configures the Kafka-backed partitioned log broker.
type LogBrokerCfg struct {
	Brokers            []string `yaml:"brokers"`
	Group              string   `yaml:"group"`
	PollTimeout        string   `yaml:"pollTimeout"` // duration string, bounds consumer cancellation latency
	DefaultDestination string   `yaml:"defaultDestination"`
}

// SocketConfig configures the WebSocket-backed socket broker.
type SocketConfig struct {
	URL                string `yaml:"url"`
	HandshakeTimeout   string `yaml:"handshakeTimeout"` // duration string
	DefaultDestination string `yaml:"defaultDestination"`
}

// CommonConfig holds settings shared across broker kinds. Retry and size
// limits are accepted and validated but not consumed by any adapter yet;
// a retry decorator around the adapter send path is the intended consumer.
type CommonConfig struct {
	RetryAttempts  int    `yaml:"retryAttempts"`
	RetryDelay     string `yaml:"retryDelay"` // duration string
	MaxMessageSize int    `yaml:"maxMessageSize"`
}

type LogConfig struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	OutputPath string `yaml:"outputPath"` // file path or "stdout"
	Encoding   string `yaml:"encoding"`   // json or console
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Path    string `yaml:"path"`
}

// BenchConfig holds defaults applied to benchmark requests that omit them.
type BenchConfig struct {
	MessageCount int    `yaml:"messageCount"`
	PayloadSize  int    `yaml:"payloadSize"`
	Destination  string `yaml:"destination"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Set defaults for logging
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.OutputPath == "" {
		config.Logging.OutputPath = "stdout"
	}
	if config.Logging.Encoding == "" {
		config.Logging.Encoding = "json"
	}

	// Set defaults for metrics
	if config.Metrics.Address == "" {
		config.Metrics.Address = ":2112"
	}
	if config.Metrics.Path == "" {
		config.Metrics.Path = "/metrics"
	}

	// Set defaults for common settings
	if config.Common.RetryAttempts <= 0 {
		config.Common.RetryAttempts = 3
	}
	if config.Common.RetryDelay == "" {
		config.Common.RetryDelay = "1s"
	}
	if config.Common.MaxMessageSize <= 0 {
		config.Common.MaxMessageSize = 1 << 20
	}

	// Set defaults for benchmarking
	if config.Benchmark.MessageCount <= 0 {
		config.Benchmark.MessageCount = 100
	}
	if config.Benchmark.PayloadSize <= 0 {
		config.Benchmark.PayloadSize = 256
	}
	if config.Benchmark.Destination == "" {
		config.Benchmark.Destination = "benchmark"
	}

	// Set defaults for configured brokers
	if config.Log != nil && config.Log.PollTimeout == "" {
		config.Log.PollTimeout = "1s"
	}
	if config.Socket != nil && config.Socket.HandshakeTimeout == "" {
		config.Socket.HandshakeTimeout = "10s"
	}

	// Validate the configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// validateConfig performs validation of all configuration values
func validateConfig(cfg *Config) error {
	if cfg.Queue != nil && len(cfg.Queue.URLs) == 0 {
		return fmt.Errorf("queue broker requires at least one server url")
	}

	if cfg.Amqp != nil {
		if cfg.Amqp.URI == "" {
			return fmt.Errorf("amqp broker uri is required")
		}
		if cfg.Amqp.PrefetchCount < 0 {
			return fmt.Errorf("amqp prefetch count cannot be negative")
		}
	}

	if cfg.Log != nil {
		if len(cfg.Log.Brokers) == 0 {
			return fmt.Errorf("log broker requires at least one broker address")
		}
		d, err := time.ParseDuration(cfg.Log.PollTimeout)
		if err != nil {
			return fmt.Errorf("invalid log broker poll timeout: %w", err)
		}
		if d <= 0 || d > time.Second {
			return fmt.Errorf("log broker poll timeout must be in (0s, 1s]")
		}
	}

	if cfg.Socket != nil {
		if cfg.Socket.URL == "" {
			return fmt.Errorf("socket broker url is required")
		}
		if _, err := time.ParseDuration(cfg.Socket.HandshakeTimeout); err != nil {
			return fmt.Errorf("invalid socket handshake timeout: %w", err)
		}
	}

	if _, err := time.ParseDuration(cfg.Common.RetryDelay); err != nil {
		return fmt.Errorf("invalid retry delay: %w", err)
	}

	// Validate logging config
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}

	switch cfg.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %s", cfg.Logging.Encoding)
	}

	return nil
}

// ApplyOverrides applies command line flag overrides to the configuration
func (c *Config) ApplyOverrides(metricsAddr, metricsPath string, benchCount int) {
	if metricsAddr != "" {
		c.Metrics.Address = metricsAddr
	}
	if metricsPath != "" {
		c.Metrics.Path = metricsPath
	}
	if benchCount > 0 {
		c.Benchmark.MessageCount = benchCount
	}
}
