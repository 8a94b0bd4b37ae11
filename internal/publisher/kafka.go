// Package publisher delivers accepted leads to Kafka.
//
// A single Publisher is created at process startup and shared by the write
// path. Broker availability is tracked with a status flag that a background
// probe keeps current; publish attempts themselves never flip the flag, so a
// single slow write cannot mark the broker down.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/leadgate-io/leadgate/internal/config"
	"github.com/leadgate-io/leadgate/internal/lead"
)

// Compile-time interface assertion: Publisher implements the domain publisher.
var _ lead.Publisher = (*Publisher)(nil)

// Publisher writes lead envelopes to the primary and dead-letter topics.
type Publisher struct {
	cfg        *Config
	primary    *kafka.Writer
	deadLetter *kafka.Writer
	connected  atomic.Bool
	logger     *slog.Logger

	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

// New creates a Kafka publisher and starts its connection probe.
//
// The initial probe runs synchronously but its result is advisory: an
// unreachable broker does not fail construction, it only leaves the status
// flag down until the background probe observes recovery. Callers therefore
// never block startup on Kafka.
func New(cfg *Config) (*Publisher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid publisher configuration: %w", err)
	}

	p := &Publisher{
		cfg:        cfg,
		primary:    newWriter(cfg, cfg.PrimaryTopic),
		deadLetter: newWriter(cfg, cfg.DeadLetterTopic),
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	if p.probe() {
		p.logger.Info("Connected to Kafka",
			slog.Any("brokers", cfg.Brokers),
			slog.String("topic", cfg.PrimaryTopic),
			slog.String("dlq_topic", cfg.DeadLetterTopic),
		)
	} else {
		p.logger.Warn("Kafka unreachable at startup, will keep probing",
			slog.Any("brokers", cfg.Brokers),
			slog.Duration("interval", cfg.ReconnectInterval),
		)
	}

	go p.monitor()

	return p, nil
}

func newWriter(cfg *Config, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            cfg.MaxAttempts,
		ReadTimeout:            cfg.WriteTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
}

// Connected reports the broker status as last observed by the probe.
func (p *Publisher) Connected() bool {
	return p.connected.Load()
}

// Publish delivers the envelope to the primary topic.
//
// The correlation id is both the partition key (keeps retries of the same
// lead on one partition) and a message header for consumers that only read
// metadata.
func (p *Publisher) Publish(ctx context.Context, event *lead.Event) error {
	return p.write(ctx, p.primary, event)
}

// PublishDeadLetter delivers the envelope to the dead-letter topic.
func (p *Publisher) PublishDeadLetter(ctx context.Context, event *lead.Event) error {
	return p.write(ctx, p.deadLetter, event)
}

func (p *Publisher) write(ctx context.Context, writer *kafka.Writer, event *lead.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode lead event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.CorrelationID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "correlationId", Value: []byte(event.CorrelationID)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", writer.Topic, err)
	}

	return nil
}

// probe dials each configured broker until one answers, then updates the
// status flag. Returns the observed status.
func (p *Publisher) probe() bool {
	ctx, cancel := context.WithTimeout(context.Background(), p.cfg.DialTimeout)
	defer cancel()

	for _, broker := range p.cfg.Brokers {
		conn, err := kafka.DialContext(ctx, "tcp", broker)
		if err != nil {
			continue
		}

		_ = conn.Close()
		p.connected.Store(true)

		return true
	}

	p.connected.Store(false)

	return false
}

// monitor re-probes the brokers on a fixed interval until Close is called.
func (p *Publisher) monitor() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.cfg.ReconnectInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			was := p.connected.Load()
			now := p.probe()

			switch {
			case now && !was:
				p.logger.Info("Kafka connection restored",
					slog.Any("brokers", p.cfg.Brokers))
			case !now && was:
				p.logger.Warn("Kafka connection lost",
					slog.Any("brokers", p.cfg.Brokers))
			}
		}
	}
}

// Close stops the probe and closes both writers. Safe to call multiple times.
func (p *Publisher) Close() error {
	var primaryErr, dlqErr error

	p.closeOnce.Do(func() {
		close(p.stopCh)
		<-p.doneCh

		primaryErr = p.primary.Close()
		dlqErr = p.deadLetter.Close()
	})

	if primaryErr != nil {
		return fmt.Errorf("failed to close primary writer: %w", primaryErr)
	}

	if dlqErr != nil {
		return fmt.Errorf("failed to close dead-letter writer: %w", dlqErr)
	}

	return nil
}
