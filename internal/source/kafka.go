package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deliverylens/internal/dataset"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopics are the topic names used when none are configured.
func DefaultTopics() Names {
	return Names{
		Orders:   "deliverylens.orders",
		Payments: "deliverylens.payments",
		Reviews:  "deliverylens.reviews",
	}
}

// messageReader abstracts kafka.Reader for testability.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaPartition is the one partition dataset rows are produced to and read
// from. Rows outside it are never seen by KafkaSource.
const KafkaPartition = 0

// KafkaSource reads each topic from the beginning of KafkaPartition until no
// message arrives within the idle timeout. Every message value is one
// flat JSON object. Only committed messages are read.
type KafkaSource struct {
	topics    Names
	idle      time.Duration
	newReader func(topic string) messageReader
	log       *zap.Logger
}

// NewKafkaSource creates a Kafka source.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaSource(bootstrap string, topics Names, idle time.Duration, log *zap.Logger) *KafkaSource {
	brokers := splitBrokers(bootstrap)
	return newKafkaSource(topics, idle, func(topic string) messageReader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			Partition:      KafkaPartition,
			MinBytes:       1,
			MaxBytes:       10e6,
			IsolationLevel: kafka.ReadCommitted,
		})
	}, log)
}

// NewKafkaSourceWith is only for tests to inject fake readers.
func NewKafkaSourceWith(topics Names, idle time.Duration, newReader func(topic string) messageReader, log *zap.Logger) *KafkaSource {
	return newKafkaSource(topics, idle, newReader, log)
}

func newKafkaSource(topics Names, idle time.Duration, newReader func(string) messageReader, log *zap.Logger) *KafkaSource {
	if log == nil {
		log = zap.NewNop()
	}
	if idle <= 0 {
		idle = 5 * time.Second
	}
	d := DefaultTopics()
	if topics.Orders == "" {
		topics.Orders = d.Orders
	}
	if topics.Payments == "" {
		topics.Payments = d.Payments
	}
	if topics.Reviews == "" {
		topics.Reviews = d.Reviews
	}
	return &KafkaSource{topics: topics, idle: idle, newReader: newReader, log: log.Named("kafka")}
}

func (s *KafkaSource) Load(ctx context.Context) (dataset.Bundle, error) {
	var b dataset.Bundle
	err := s.topics.each(func(name, topic string) error {
		t, err := s.readTopic(ctx, name, topic)
		if err != nil {
			return fmt.Errorf("kafka source: %s: %w", name, err)
		}
		assign(&b, t)
		return nil
	})
	return b, err
}

func (s *KafkaSource) readTopic(ctx context.Context, name, topic string) (dataset.Table, error) {
	r := s.newReader(topic)
	defer r.Close()

	tb := newTableBuilder(name)
	skipped := 0
	for {
		rctx, cancel := context.WithTimeout(ctx, s.idle)
		m, err := r.ReadMessage(rctx)
		idle := rctx.Err() != nil
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return dataset.Table{}, ctx.Err()
			}
			if idle {
				break
			}
			return dataset.Table{}, fmt.Errorf("read %s: %w", topic, err)
		}
		keys, values, err := DecodeRow(m.Value)
		if err != nil {
			skipped++
			s.log.Warn("skipping message", zap.String("topic", topic), zap.Int64("offset", m.Offset), zap.Error(err))
			continue
		}
		tb.add(keys, values)
	}
	s.log.Debug("topic drained", zap.String("topic", topic), zap.Int("rows", len(tb.rows)), zap.Int("skipped", skipped))
	return dataset.Table{Name: name, Columns: tb.columns, Rows: tb.rows}, nil
}

func splitBrokers(bootstrap string) []string {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return brokers
}
