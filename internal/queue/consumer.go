package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// AuditLog writes one JSON line per reservation event.
type AuditLog struct {
	logger *logrus.Logger
}

// NewAuditLog returns an AuditLog writing to w.
func NewAuditLog(w io.Writer) *AuditLog {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	return &AuditLog{logger: l}
}

// OpenAuditLog creates the parent directory of path and opens it for append.
// The caller closes the returned file.
func OpenAuditLog(path string) (*AuditLog, *os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("mkdir audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit log: %w", err)
	}
	return NewAuditLog(f), f, nil
}

// Handle decodes body and appends it.  Malformed or unknown events are
// rejected so the consumer can drop them.
func (a *AuditLog) Handle(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	var msg string
	switch ev.Type {
	case TypeReservationMade:
		msg = "reservation made"
	case TypeReservationCancelled:
		msg = "reservation cancelled"
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	fields := logrus.Fields{
		"type":           ev.Type,
		"reservation_id": ev.ReservationID,
		"event_id":       ev.EventID,
		"category":       ev.Category,
		"quantity":       ev.Quantity,
		"occurred_at":    ev.OccurredAt,
	}
	if ev.UserID != "" {
		fields["user_id"] = ev.UserID
	}
	a.logger.WithFields(fields).Info(msg)
	return nil
}

// Consumer drains the reservation queue into an AuditLog.
type Consumer struct {
	url   string
	queue string
	audit *AuditLog
	log   *logrus.Entry
}

// NewConsumer returns a consumer for queue at url.
func NewConsumer(url, queue string, audit *AuditLog, log *logrus.Entry) *Consumer {
	return &Consumer{url: url, queue: queue, audit: audit, log: log.WithField("component", "audit-consumer")}
}

// Run connects, consumes and reconnects with exponential backoff until ctx
// is cancelled.  It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
		c.log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return nil
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
		c.log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.audit.Handle(d.Body); err != nil {
				c.log.WithError(err).Error("handle message failed")
				_ = d.Nack(false, false) // drop; requeueing a bad payload would loop
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// sleep waits for d or ctx, reporting whether the full duration elapsed.
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
