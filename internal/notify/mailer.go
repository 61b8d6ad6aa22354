// Package notify renders order-status emails and hands them to the delivery
// pipeline over Kafka. Delivery is best-effort with bounded retries; a dead
// broker must never block an order transition.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
)

type Email struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type KafkaMailer struct {
	w *kafka.Writer
}

func NewKafkaMailer(brokersSTR, topic string) *KafkaMailer {
	brokers := strings.Split(brokersSTR, ",")

	return &KafkaMailer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (m *KafkaMailer) Close() error {
	return m.w.Close()
}

// Send publishes the email keyed by recipient, retrying with exponential
// backoff before giving up.
func (m *KafkaMailer) Send(ctx context.Context, e Email) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.w.WriteMessages(ctx, kafka.Message{
			Key:   []byte(e.To),
			Value: b,
			Headers: []kafka.Header{
				{Key: "content-type", Value: []byte("application/json")},
			},
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}
