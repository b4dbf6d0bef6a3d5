package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/encoding/avro"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// ReconcileProducer publishes avro-encoded reconcile commands. The record
// key is the order id, so retries for one order stay in one partition and
// apply in order.
type ReconcileProducer struct {
	client *kgo.Client
	codec  *avro.Codec
	topic  string
	log    logger.Logger
}

func NewReconcileProducer(cfg config.KafkaConfig, codec *avro.Codec, log logger.Logger) (*ReconcileProducer, error) {
	opts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.ReconcileTopic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	log.Info("kafka producer ready", logger.String("topic", cfg.ReconcileTopic))

	return &ReconcileProducer{
		client: client,
		codec:  codec,
		topic:  cfg.ReconcileTopic,
		log:    log,
	}, nil
}

func (p *ReconcileProducer) Publish(ctx context.Context, cmd payment.ReconcileCommand) error {
	if cmd.OrderID == "" {
		return fmt.Errorf("reconcile command has no order id")
	}

	binary, err := p.codec.Encode(avro.ReconcileToNative(cmd))
	if err != nil {
		return fmt.Errorf("encode reconcile command: %w", err)
	}

	rec := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(cmd.OrderID),
		Value:     binary,
		Timestamp: time.Now().UTC(),
	}

	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		p.log.Error("publish reconcile command failed",
			logger.String("order_id", cmd.OrderID),
			logger.String("topic", p.topic),
			logger.Error(err))
		return fmt.Errorf("publish to kafka topic %s: %w", p.topic, err)
	}
	return nil
}

func (p *ReconcileProducer) Close() {
	p.client.Close()
}
