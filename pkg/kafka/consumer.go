package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"FinBoard/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// HandlerFunc processes one message. A returned error is retried with
// backoff up to the configured limit.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// ConsumerOption configures Consumer.
type ConsumerOption func(*ConsumerConfig)

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Brokers         []string
	Topic           string
	GroupID         string
	AutoOffsetReset string
	RetryMax        int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
	MinBytes        int
	MaxBytes        int
}

// WithConsumerBrokers sets Kafka brokers.
func WithConsumerBrokers(brokers []string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.Brokers = brokers
	}
}

// WithConsumerGroupID sets consumer group ID. Without a group the consumer
// reads partition 0 and never commits.
func WithConsumerGroupID(groupID string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.GroupID = groupID
	}
}

// WithConsumerAutoOffsetReset sets where a new group starts: "earliest" or
// "latest".
func WithConsumerAutoOffsetReset(autoOffsetReset string) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.AutoOffsetReset = autoOffsetReset
	}
}

// WithConsumerRetry configures retry attempts and backoff range.
func WithConsumerRetry(max int, backoffMin, backoffMax time.Duration) ConsumerOption {
	return func(c *ConsumerConfig) {
		c.RetryMax = max
		c.BackoffMin = backoffMin
		c.BackoffMax = backoffMax
	}
}

// Consumer reads one topic and hands every message to a HandlerFunc in
// order. Offsets are committed after the handler finishes, successful or not,
// so a poison message is skipped instead of blocking the partition.
type Consumer struct {
	cfg    *ConsumerConfig
	reader MessageReader
	log    *logger.Logger
	commit bool
	once   sync.Once
}

func defaultConsumerConfig() *ConsumerConfig {
	return &ConsumerConfig{
		AutoOffsetReset: "latest",
		RetryMax:        3,
		BackoffMin:      50 * time.Millisecond,
		BackoffMax:      2 * time.Second,
		MinBytes:        1,
		MaxBytes:        10e6, // 10MB
	}
}

// NewConsumer creates a consumer for topic.
func NewConsumer(topic string, log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	cfg.Topic = topic
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	start := kafka.LastOffset
	if cfg.AutoOffsetReset == "earliest" {
		start = kafka.FirstOffset
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
		StartOffset: start,
	})
	return newConsumer(cfg, reader, log), nil
}

// NewConsumerWithReader wraps an existing reader. Commits happen only when
// a group ID is configured.
func NewConsumerWithReader(r MessageReader, log *logger.Logger, opts ...ConsumerOption) *Consumer {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return newConsumer(cfg, r, log)
}

func newConsumer(cfg *ConsumerConfig, r MessageReader, log *logger.Logger) *Consumer {
	if log == nil {
		log = logger.Nop()
	}
	initConsumerMetricsOnce()
	return &Consumer{
		cfg:    cfg,
		reader: r,
		log:    log.Named("kafka.consumer"),
		commit: cfg.GroupID != "",
	}
}

// Run consumes until ctx is cancelled or the reader fails for good. A
// cancelled context is not reported as an error.
func (c *Consumer) Run(ctx context.Context, handle HandlerFunc) error {
	c.log.Info("consuming",
		logger.String("topic", c.cfg.Topic),
		logger.String("group", c.cfg.GroupID),
	)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		start := time.Now()
		if err := c.handle(ctx, msg, handle); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			consumerFailures.WithLabelValues(msg.Topic).Inc()
			c.log.Error("message skipped",
				logger.String("topic", msg.Topic),
				logger.Int("partition", msg.Partition),
				logger.Int64("offset", msg.Offset),
				logger.Error(err),
			)
		}
		consumerHandleLatency.WithLabelValues(msg.Topic).Observe(time.Since(start).Seconds())

		if c.commit {
			if err := c.commitWithRetry(ctx, msg, 3); err != nil && ctx.Err() == nil {
				c.log.Warn("commit failed", logger.Int64("offset", msg.Offset), logger.Error(err))
			}
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handle HandlerFunc) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = safeHandle(ctx, msg, handle)
		if err == nil || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func safeHandle(ctx context.Context, msg kafka.Message, handle HandlerFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handle(ctx, msg)
}

// commitWithRetry commits a single message offset with bounded retries.
func (c *Consumer) commitWithRetry(ctx context.Context, msg kafka.Message, max int) error {
	if max <= 0 {
		max = 1
	}
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = c.reader.CommitMessages(cctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-time.After(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Close closes the reader once.
func (c *Consumer) Close() error {
	var err error
	c.once.Do(func() { err = c.reader.Close() })
	return err
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	// exponential backoff base
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

// Consumer metrics
var (
	consumerHandleLatency *prometheus.HistogramVec
	consumerFailures      *prometheus.CounterVec
	consumerMetricsOnce   sync.Once
)

func initConsumerMetricsOnce() {
	consumerMetricsOnce.Do(func() {
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "finboard_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
		consumerFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "finboard_kafka_consumer_failures_total", Help: "Messages skipped after exhausting retries"},
			[]string{"topic"},
		)
	})
}
