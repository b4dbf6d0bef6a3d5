package kafka

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/application/payment"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/config"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/internal/infrastructure/encoding/avro"
	"github.com/dev-himalayansavour/ktr-kiosk-backend-rista/pkg/logger"
)

// WebhookHandler applies one reconcile command. Implemented by the payment
// service.
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, cmd payment.ReconcileCommand) error
}

// ReconcileConsumer reads reconcile commands off the topic and applies them.
// Undecodable records are logged and skipped; a handler error stops the
// consumer so the run group can restart it without committing the offset.
type ReconcileConsumer struct {
	reader  *kafkago.Reader
	codec   *avro.Codec
	handler WebhookHandler
	log     logger.Logger
}

func NewReconcileConsumer(cfg config.KafkaConfig, codec *avro.Codec, handler WebhookHandler, log logger.Logger) *ReconcileConsumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.ConsumerGroup,
		Topic:    cfg.ReconcileTopic,
		MinBytes: 1e3,
		MaxBytes: 1e6,
	})

	return &ReconcileConsumer{
		reader:  reader,
		codec:   codec,
		handler: handler,
		log:     log,
	}
}

func (c *ReconcileConsumer) Start(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}

		native, err := c.codec.Decode(msg.Value)
		if err != nil {
			c.log.Error("skipping undecodable reconcile record",
				logger.String("key", string(msg.Key)),
				logger.Error(err))
			continue
		}

		cmd, err := avro.ReconcileFromNative(native)
		if err != nil {
			c.log.Error("skipping malformed reconcile record",
				logger.String("key", string(msg.Key)),
				logger.Error(err))
			continue
		}

		if err := c.handler.HandleWebhook(ctx, cmd); err != nil {
			return err
		}
	}
}

func (c *ReconcileConsumer) Close() {
	_ = c.reader.Close()
}
