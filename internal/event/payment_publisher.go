package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// PaymentPublisher publishes terminal payment events to RabbitMQ
type PaymentPublisher struct {
	conn              *RabbitMQConnection
	messagesPublished int64
	messagesFailed    int64
	lastPublishTime   time.Time
}

// NewPaymentPublisher creates a new payment event publisher
func NewPaymentPublisher(conn *RabbitMQConnection) *PaymentPublisher {
	return &PaymentPublisher{
		conn:            conn,
		lastPublishTime: time.Now(),
	}
}

// PublishPaymentEvent publishes a terminal payment event to the
// payment_events queue
func (p *PaymentPublisher) PublishPaymentEvent(ctx context.Context, event PaymentEventModel) error {
	// Ensure the queue exists
	_, err := p.conn.Channel.QueueDeclare(
		PaymentEventsQueue, // queue name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to marshal payment event: %w", err)
	}

	err = p.conn.Channel.PublishWithContext(
		ctx,
		"",                 // exchange
		PaymentEventsQueue, // routing key (queue name)
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.messagesFailed++
		return fmt.Errorf("failed to publish payment event: %w", err)
	}

	p.messagesPublished++
	p.lastPublishTime = time.Now()

	slog.Info("Payment event published",
		"queue", PaymentEventsQueue,
		"transaction_id", event.TransactionID,
		"status", event.Status,
	)

	return nil
}

// GetStats returns publisher statistics
func (p *PaymentPublisher) GetStats() (published int64, failed int64, lastPublish time.Time) {
	return p.messagesPublished, p.messagesFailed, p.lastPublishTime
}
