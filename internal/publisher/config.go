package publisher

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/leadgate-io/leadgate/internal/config"
)

const (
	defaultBrokers           = "localhost:9092"
	defaultPrimaryTopic      = "lead.raw"
	defaultDeadLetterTopic   = "lead.dlq"
	defaultDialTimeout       = 10 * time.Second
	defaultWriteTimeout      = 10 * time.Second
	defaultReconnectInterval = 15 * time.Second
	defaultMaxAttempts       = 3
)

// DefaultConfigPath is the default location for the leadgate configuration file.
// Uses hidden file format following common tool conventions (.eslintrc, .prettierrc, etc.).
const DefaultConfigPath = ".leadgate.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "LEADGATE_CONFIG_PATH"

var (
	// ErrNoBrokers is returned when no broker address is configured.
	ErrNoBrokers = errors.New("at least one broker address is required")

	// ErrEmptyTopic is returned when the primary or dead-letter topic is empty.
	ErrEmptyTopic = errors.New("topic cannot be empty")

	// ErrSameTopics is returned when primary and dead-letter topics collide.
	ErrSameTopics = errors.New("primary and dead-letter topics must differ")
)

type (
	// Config holds Kafka publisher configuration.
	Config struct {
		Brokers           []string
		PrimaryTopic      string
		DeadLetterTopic   string
		DialTimeout       time.Duration
		WriteTimeout      time.Duration
		ReconnectInterval time.Duration
		MaxAttempts       int
	}

	// fileOverlay is the YAML shape of the optional .leadgate.yaml config file.
	//
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	fileOverlay struct {
		Kafka struct {
			Brokers         []string `yaml:"brokers"`
			Topic           string   `yaml:"topic"`
			DeadLetterTopic string   `yaml:"dead_letter_topic"`
		} `yaml:"kafka"`
	}
)

// LoadConfig loads publisher configuration.
//
// Resolution order: hard defaults, then the optional YAML overlay file, then
// environment variables. The overlay file is optional and degrades
// gracefully: a missing or unparsable file is logged and ignored, never
// fatal.
func LoadConfig() *Config {
	overlay := loadOverlay(config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath))

	brokers := overlay.Kafka.Brokers
	if len(brokers) == 0 {
		brokers = config.ParseCommaSeparatedList(defaultBrokers)
	}

	if env := config.GetEnvStr("LEADGATE_KAFKA_BROKERS", ""); env != "" {
		brokers = config.ParseCommaSeparatedList(env)
	}

	primaryTopic := overlay.Kafka.Topic
	if primaryTopic == "" {
		primaryTopic = defaultPrimaryTopic
	}

	deadLetterTopic := overlay.Kafka.DeadLetterTopic
	if deadLetterTopic == "" {
		deadLetterTopic = defaultDeadLetterTopic
	}

	return &Config{
		Brokers:           brokers,
		PrimaryTopic:      config.GetEnvStr("LEADGATE_KAFKA_TOPIC", primaryTopic),
		DeadLetterTopic:   config.GetEnvStr("LEADGATE_KAFKA_DLQ_TOPIC", deadLetterTopic),
		DialTimeout:       config.GetEnvDuration("LEADGATE_KAFKA_DIAL_TIMEOUT", defaultDialTimeout),
		WriteTimeout:      config.GetEnvDuration("LEADGATE_KAFKA_WRITE_TIMEOUT", defaultWriteTimeout),
		ReconnectInterval: config.GetEnvDuration("LEADGATE_KAFKA_RECONNECT_INTERVAL", defaultReconnectInterval),
		MaxAttempts:       config.GetEnvInt("LEADGATE_KAFKA_MAX_ATTEMPTS", defaultMaxAttempts),
	}
}

// Validate checks if the publisher configuration is valid.
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}

	if strings.TrimSpace(c.PrimaryTopic) == "" || strings.TrimSpace(c.DeadLetterTopic) == "" {
		return ErrEmptyTopic
	}

	if c.PrimaryTopic == c.DeadLetterTopic {
		return ErrSameTopics
	}

	return nil
}

// loadOverlay reads the optional YAML config file at the given path.
//
// Behavior:
//   - Returns an empty overlay (not an error) if the file doesn't exist
//   - Returns an empty overlay + logs a warning if the YAML is invalid
//   - Returns the populated overlay on success
func loadOverlay(path string) *fileOverlay {
	overlay := &fileOverlay{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Missing file is OK - the overlay is optional
			slog.Debug("Config file not found, using env configuration only",
				slog.String("path", path))

			return overlay
		}

		slog.Warn("Failed to read config file, using env configuration only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return overlay
	}

	if len(data) == 0 {
		return overlay
	}

	if err := yaml.Unmarshal(data, overlay); err != nil {
		slog.Warn("Failed to parse config file, using env configuration only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &fileOverlay{}
	}

	return overlay
}
