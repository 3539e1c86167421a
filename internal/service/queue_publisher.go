// Package service holds the outbound integrations used by the HTTP layer.
// Broker errors are logged and returned so callers can ignore them without
// interrupting the request flow.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/mechanic-shop/internal/logging"
	"github.com/iliyamo/mechanic-shop/internal/queue"
)

// EventRecorder counts published events by outcome. *metrics.Metrics
// implements it.
type EventRecorder interface {
	RecordEvent(direction, result string)
}

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a channel to the broker.
type Dialer func(url string) (Channel, func() error, error)

// DialAMQP dials url with a short connect timeout and opens one channel.
func DialAMQP(url string) (Channel, func() error, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(3 * time.Second)})
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// TicketPublisher publishes TicketEvent messages to the durable
// service_ticket.events queue. The connection is opened on first use and
// dropped after any failure so the next publish redials.
type TicketPublisher struct {
	url  string
	dial Dialer
	log  logging.Logger
	rec  EventRecorder

	mu        sync.Mutex
	ch        Channel
	closeConn func() error
}

func NewTicketPublisher(url string, dial Dialer, log logging.Logger, rec EventRecorder) *TicketPublisher {
	if dial == nil {
		dial = DialAMQP
	}
	return &TicketPublisher{url: url, dial: dial, log: log, rec: rec}
}

// Publish sends ev as a persistent JSON message.
func (p *TicketPublisher) Publish(ctx context.Context, ev queue.TicketEvent) error {
	err := p.publish(ctx, ev)
	result := "ok"
	if err != nil {
		result = "error"
		p.log.Warn(ctx, "ticket event publish failed", "type", ev.Type, "ticket_id", ev.TicketID, "error", err)
	}
	if p.rec != nil {
		p.rec.RecordEvent("publish", result)
	}
	return err
}

func (p *TicketPublisher) publish(ctx context.Context, ev queue.TicketEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		ch, closeConn, err := p.dial(p.url)
		if err != nil {
			return fmt.Errorf("dial broker: %w", err)
		}
		if _, err := ch.QueueDeclare(queue.TicketQueueName, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = closeConn()
			return fmt.Errorf("queue declare: %w", err)
		}
		p.ch, p.closeConn = ch, closeConn
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", queue.TicketQueueName, false, false, pub); err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Close releases the broker connection, if any.
func (p *TicketPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *TicketPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.closeConn != nil {
		_ = p.closeConn()
	}
	p.ch, p.closeConn = nil, nil
}
