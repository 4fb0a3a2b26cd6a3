package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the producer uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes pre-encoded records and records per-topic metrics.
type Producer struct {
	writer      MessageWriter
	compression string
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	w, err := cfg.writer()
	if err != nil {
		return nil, err
	}
	return NewProducerWithWriter(w, cfg.Compression), nil
}

// NewProducerWithWriter wraps an existing writer, e.g. an in-memory one.
func NewProducerWithWriter(w MessageWriter, compression string) *Producer {
	if compression == "" {
		compression = "none"
	}
	producerMetricsOnce.Do(registerProducerMetrics)
	return &Producer{writer: w, compression: compression}
}

// Publish writes one record. With an async writer the returned error only
// covers enqueueing.
func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	start := time.Now()
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  start,
	})
	p.observe(topic, len(value), time.Since(start), err)
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

var (
	producerMetricsOnce sync.Once
	producerRecords     *prometheus.CounterVec
	producerBytes       *prometheus.CounterVec
	producerLatency     *prometheus.HistogramVec
)

func registerProducerMetrics() {
	producerRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finboard_kafka_producer_messages_total",
		Help: "Dashboard events published to Kafka",
	}, []string{"topic", "compression", "result"})
	producerBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finboard_kafka_producer_bytes_total",
		Help: "Dashboard event payload bytes published",
	}, []string{"topic", "compression"})
	producerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finboard_kafka_producer_publish_seconds",
		Help:    "Publish latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
}

func (p *Producer) observe(topic string, size int, dur time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	producerRecords.WithLabelValues(topic, p.compression, result).Inc()
	if err == nil {
		producerBytes.WithLabelValues(topic, p.compression).Add(float64(size))
	}
	producerLatency.WithLabelValues(topic).Observe(dur.Seconds())
}
