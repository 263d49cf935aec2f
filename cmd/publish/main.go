package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"deliverylens/internal/dataset"
	"deliverylens/internal/logger"
	"deliverylens/internal/source"

	ck "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type options struct {
	bootstrap string
	txID      string
	csvDir    string
	topics    source.Names
}

func main() {
	var o options
	d := source.DefaultTopics()
	flag.StringVar(&o.bootstrap, "bootstrap", "localhost:9092", "kafka bootstrap servers")
	flag.StringVar(&o.txID, "tx-id", "deliverylens-publish-1", "transactional id")
	flag.StringVar(&o.csvDir, "csv-dir", "./data", "directory holding the CSV exports")
	flag.StringVar(&o.topics.Orders, "topic-orders", d.Orders, "orders topic")
	flag.StringVar(&o.topics.Payments, "topic-payments", d.Payments, "payments topic")
	flag.StringVar(&o.topics.Reviews, "topic-reviews", d.Reviews, "reviews topic")
	flag.Parse()

	log, err := logger.New(logger.Config{Service: "publish"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, o, log); err != nil {
		log.Fatal("publish failed", zap.Error(err))
	}
}

func run(ctx context.Context, o options, log *zap.Logger) error {
	b, err := source.NewCSVSource(o.csvDir, source.Names{}, log).Load(ctx)
	if err != nil {
		return err
	}

	p, err := ck.NewProducer(&ck.ConfigMap{
		"bootstrap.servers":  o.bootstrap,
		"enable.idempotence": true,
		"acks":               "all",
		"transactional.id":   o.txID,
	})
	if err != nil {
		return fmt.Errorf("producer: %w", err)
	}
	defer p.Close()
	if err := p.InitTransactions(ctx); err != nil {
		return fmt.Errorf("init tx: %w", err)
	}
	log.Info("publisher started", zap.String("bootstrap", o.bootstrap), zap.String("tx_id", o.txID))

	return publishBundle(ctx, p, o.topics, b, log)
}

// txProducer is the part of ck.Producer used here.
type txProducer interface {
	BeginTransaction() error
	Produce(msg *ck.Message, deliveryChan chan ck.Event) error
	Flush(timeoutMs int) int
	CommitTransaction(ctx context.Context) error
	AbortTransaction(ctx context.Context) error
}

func publishBundle(ctx context.Context, p txProducer, topics source.Names, b dataset.Bundle, log *zap.Logger) error {
	for _, item := range []struct {
		topic string
		table dataset.Table
	}{
		{topics.Orders, b.Orders},
		{topics.Payments, b.Payments},
		{topics.Reviews, b.Reviews},
	} {
		n, err := publishTable(ctx, p, item.topic, item.table)
		if err != nil {
			return fmt.Errorf("publish %s: %w", item.table.Name, err)
		}
		log.Info("table published", zap.String("dataset", item.table.Name), zap.String("topic", item.topic), zap.Int("rows", n))
	}
	return nil
}

const flushTimeoutMs = 15000

// publishTable sends every row of t to source.KafkaPartition inside one
// transaction, so consumers reading committed data see the whole table or
// none of it.
func publishTable(ctx context.Context, p txProducer, topic string, t dataset.Table) (int, error) {
	key, _ := t.ColumnIndex("order_id")
	if err := p.BeginTransaction(); err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	abort := func(err error) (int, error) {
		return 0, errors.Join(err, p.AbortTransaction(context.WithoutCancel(ctx)))
	}
	for i, row := range t.Rows {
		if err := ctx.Err(); err != nil {
			return abort(err)
		}
		val, err := source.EncodeRow(t.Columns, row)
		if err != nil {
			return abort(fmt.Errorf("encode row %d: %w", i+1, err))
		}
		msg := &ck.Message{
			TopicPartition: ck.TopicPartition{Topic: &topic, Partition: source.KafkaPartition},
			Key:            []byte(t.Cell(i, key)),
			Value:          val,
		}
		if err := p.Produce(msg, nil); err != nil {
			return abort(fmt.Errorf("produce row %d: %w", i+1, err))
		}
	}
	if left := p.Flush(flushTimeoutMs); left > 0 {
		return abort(fmt.Errorf("%d messages still queued after flush", left))
	}
	if err := p.CommitTransaction(ctx); err != nil {
		return abort(fmt.Errorf("commit tx: %w", err))
	}
	return len(t.Rows), nil
}
