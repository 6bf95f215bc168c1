package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/furima/checkout/internal/clock"
	"github.com/furima/checkout/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "checkout"
	ExchangeType = "topic"

	dialAttempts = 5
	dialBackoff  = 2 * time.Second
)

// Channel is the subset of *amqp.Channel used for publishing.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Connect dials the broker, retrying while it starts, and declares the exchange.
func Connect(url string, logger *slog.Logger) (*amqp.Connection, *amqp.Channel, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("connect to rabbitmq failed", "attempt", i+1, "error", err)
		time.Sleep(dialBackoff)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		ExchangeType, // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("could not declare exchange: %w", err)
	}

	return conn, ch, nil
}

// RabbitPublisher publishes persistent JSON events to the checkout exchange.
// amqp channels are not safe for concurrent publishing, so calls are serialized.
type RabbitPublisher struct {
	mu    sync.Mutex
	ch    Channel
	clock clock.Clock
}

func NewRabbitPublisher(ch Channel, clk clock.Clock) *RabbitPublisher {
	return &RabbitPublisher{ch: ch, clock: clk}
}

func (p *RabbitPublisher) PublishOrderPlaced(ctx context.Context, order domain.Order, amount int64) error {
	return p.publish(ctx, RoutingOrderPlaced, order.ID, newOrderPlaced(order, amount))
}

func (p *RabbitPublisher) PublishChargeEscalation(ctx context.Context, e *domain.UncommittedChargeError) error {
	return p.publish(ctx, RoutingChargeEscalation, e.ChargeID, newChargeEscalation(e, p.clock.Now()))
}

func (p *RabbitPublisher) publish(ctx context.Context, routingKey, messageID string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal %s: %w", routingKey, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		ExchangeName, // exchange
		routingKey,   // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.clock.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}
