package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher sends reservation events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// NopPublisher drops every event.  It is used when the broker is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ReservationEvent) error { return nil }

// AMQPPublisher publishes to a durable queue on the default exchange.  Each
// call dials its own connection so a broker restart never leaves a stale
// channel behind.
type AMQPPublisher struct {
	url   string
	queue string
	log   *logrus.Entry
}

// NewAMQPPublisher returns a publisher for queue at url.
func NewAMQPPublisher(url, queue string, log *logrus.Entry) *AMQPPublisher {
	return &AMQPPublisher{url: url, queue: queue, log: log.WithField("component", "publisher")}
}

// defaultDialTimeout bounds the broker dial when ctx carries no deadline.
const defaultDialTimeout = 5 * time.Second

// dialTimeout is the time left before ctx's deadline, or defaultDialTimeout.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if left := time.Until(deadline); left > 0 {
		return left
	}
	return time.Millisecond
}

// Publish marshals ev and sends it as a persistent message.  The dial is
// bounded by ctx's deadline.  Errors are returned unlogged; the caller
// decides how loud a lost audit event is.
func (p *AMQPPublisher) Publish(ctx context.Context, ev ReservationEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{Dial: amqp.DefaultDial(dialTimeout(ctx))})
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.WithFields(logrus.Fields{"type": ev.Type, "reservation_id": ev.ReservationID}).Debug("audit event published")
	return nil
}
