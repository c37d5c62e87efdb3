package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docvault/internal/config"
	"docvault/internal/model"
)

// rabbitPublisher implements Publisher over a RabbitMQ topic exchange.
// Routing key equals the event type (document.created, document.updated,
// document.deleted) so consumers can bind per lifecycle transition.
type rabbitPublisher struct {
	conn     *amqp.Connection
	exchange string

	mu sync.Mutex
	ch *amqp.Channel
}

// NewRabbitMQ connects to the broker and declares the durable topic exchange.
func NewRabbitMQ(cfg config.RabbitMQConfig) (Publisher, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}
	if cfg.Exchange == "" {
		return nil, fmt.Errorf("rabbitmq exchange is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	p := &rabbitPublisher{conn: conn, exchange: cfg.Exchange}
	ch, err := p.channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return p, nil
}

var _ Publisher = (*rabbitPublisher)(nil)

// channel returns the cached channel, opening a fresh one after failures.
func (p *rabbitPublisher) channel() (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Publish sends the event with persistent delivery. One retry on a stale
// channel covers broker-side channel closes between publishes.
func (p *rabbitPublisher) Publish(ctx context.Context, ev *model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Timestamp:    ev.OccurredAt,
		Type:         ev.Type,
		Body:         body,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		ch, err := p.channel()
		if err != nil {
			lastErr = err
			continue
		}
		if err := ch.PublishWithContext(ctx, p.exchange, ev.Type, false, false, msg); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("publish %s: %w", ev.Type, lastErr)
}

// Close shuts the channel and connection down.
func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	if p.ch != nil {
		p.ch.Close()
	}
	p.mu.Unlock()
	return p.conn.Close()
}
