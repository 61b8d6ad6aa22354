package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/bluespring/aqua-orders/internal/application"
	"github.com/bluespring/aqua-orders/internal/domain"
	"github.com/bluespring/aqua-orders/internal/logger"
)

// PaymentConfirmation is the message the payment gateway publishes once a
// checkout has been captured. One message creates one tracked order.
type PaymentConfirmation struct {
	OrderID       string             `json:"order_id"`
	CustomerEmail string             `json:"customer_email"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Items         []domain.OrderItem `json:"items"`
}

type ConsumerConfig struct {
	Brokers string
	Topic   string
	GroupID string
}

// StartConsumer reads payment confirmations and registers order tracking for
// each. Duplicate confirmations (replays) are committed and skipped, so
// consumption is idempotent.
func StartConsumer(ctx context.Context, svc *application.TrackingService, cfg ConsumerConfig) (*kafka.Reader, error) {
	brokers := strings.Split(cfg.Brokers, ",")

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:         brokers,
		GroupID:         cfg.GroupID,
		Topic:           cfg.Topic,
		MinBytes:        1,
		MaxBytes:        10e6,
		CommitInterval:  0,
		StartOffset:     kafka.FirstOffset,
		ReadLagInterval: -1,
	})

	logger.Info("kafka consumer starting", "brokers", cfg.Brokers, "topic", cfg.Topic, "group", cfg.GroupID)

	go func() {
		defer r.Close()

		backoff := time.Millisecond * 300
		for {
			m, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn("kafka fetch error", "err", err)
				time.Sleep(backoff)
				continue
			}
			logger.Info("payment confirmation fetched", "partition", m.Partition, "offset", m.Offset)

			var pc PaymentConfirmation
			if err = json.Unmarshal(m.Value, &pc); err != nil {
				logger.Warn("kafka invalid json. skip and commit", "err", err)
				_ = r.CommitMessages(ctx, m)
				continue
			}
			if pc.OrderID == "" || pc.CustomerEmail == "" {
				logger.Warn("kafka confirmation missing order_id or customer_email. skip and commit")
				_ = r.CommitMessages(ctx, m)
				continue
			}

			_, err = svc.CreateOrderTracking(ctx, pc.OrderID, pc.CustomerEmail, pc.TotalAmount, pc.Items)
			if err != nil {
				if errors.Is(err, domain.ErrDuplicateOrder) {
					logger.Info("duplicate confirmation, skip", "order", pc.OrderID)
					_ = r.CommitMessages(ctx, m)
					continue
				}
				logger.Warn("kafka create tracking fail, will retry", "order", pc.OrderID, "err", err)
				time.Sleep(backoff)
				continue
			}

			logger.Info("order tracking created", "order", pc.OrderID)

			if err := r.CommitMessages(ctx, m); err != nil {
				logger.Warn("[kafka] commit failed", "err", err)
			} else {
				logger.Info("[kafka] committed", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset, "order", pc.OrderID)
			}
		}
	}()
	return r, nil
}
