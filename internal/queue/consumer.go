package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/mechanic-shop/internal/logging"
)

const (
	// DefaultLogDir and LogFileName locate the append-only ticket log.
	DefaultLogDir = "logs"
	LogFileName   = "tickets.log"

	maxBackoff = 30 * time.Second
)

// Recorder counts consumed events by outcome. *metrics.Metrics implements it.
type Recorder interface {
	RecordEvent(direction, result string)
}

// Consumer reads TicketEvent messages from the service_ticket.events queue
// and appends one line per event to <dir>/tickets.log.
type Consumer struct {
	url string
	dir string
	log logging.Logger
	rec Recorder

	mu sync.Mutex // serializes writes to the log file
}

func NewConsumer(url, dir string, log logging.Logger, rec Recorder) *Consumer {
	if dir == "" {
		dir = DefaultLogDir
	}
	return &Consumer{url: url, dir: dir, log: log, rec: rec}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with capped exponential backoff. It only returns ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn(ctx, "ticket consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn(ctx, "ticket consumer: consume loop ended, reconnecting", "error", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn(ctx, "ticket consumer: set QoS failed", "error", err)
	}
	if _, err := ch.QueueDeclare(TicketQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, TicketQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := c.Handle(d.Body); err != nil {
			c.log.Error(ctx, "ticket consumer: handle message failed", "error", err)
			c.record("error")
			// no requeue: a poison message would spin forever
			_ = d.Nack(false, false)
			continue
		}
		c.record("ok")
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

// Handle decodes one message body and appends it to the ticket log.
func (c *Consumer) Handle(body []byte) error {
	var ev TicketEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.TicketID == 0 || ev.Type == "" {
		return errors.New("event missing type or ticket_id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", c.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(c.dir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single human-readable log line.
func FormatLine(ev TicketEvent) string {
	prev := ev.PreviousStatus
	if prev == "" {
		prev = "-"
	}
	return fmt.Sprintf("[%s] %s | ticket_id=%d | vin=%s | status=%s | previous=%s | actor=%s:%s\n",
		ev.OccurredAt, ev.Type, ev.TicketID, ev.VIN, ev.Status, prev, ev.ActorRole, ev.ActorSubject)
}

func (c *Consumer) record(result string) {
	if c.rec != nil {
		c.rec.RecordEvent("consume", result)
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d *= 2; d > maxBackoff {
		return maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
