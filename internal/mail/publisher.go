package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends mail messages to the broker. A publish error is returned to
// the caller: the password-reset flow must know delivery failed so it can
// roll the pending reset back.
type Publisher struct {
	url string
}

func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// SendWelcome queues the signup greeting. Callers may ignore the error;
// signup does not fail on a broken mail path.
func (p *Publisher) SendWelcome(ctx context.Context, to, name, url string) error {
	return p.publish(ctx, Message{
		To:       to,
		Name:     name,
		Subject:  "Welcome to the Trailhead family!",
		Template: TemplateWelcome,
		URL:      url,
	})
}

// SendPasswordReset queues the reset mail carrying the raw secret URL.
func (p *Publisher) SendPasswordReset(ctx context.Context, to, name, resetURL string) error {
	return p.publish(ctx, Message{
		To:       to,
		Name:     name,
		Subject:  "Your password reset token (valid for only 10 minutes)",
		Template: TemplatePasswordReset,
		URL:      resetURL,
	})
}

// publish dials the broker, declares the durable queue (idempotent) and
// publishes one persistent JSON message. Connections are short-lived on
// purpose: mail volume is tiny and a stale pooled channel would turn a
// delivery failure into a silent drop.
func (p *Publisher) publish(ctx context.Context, msg Message) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("mail: dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("mail: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("mail: declare queue: %w", err)
	}

	msg.QueuedAt = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("mail: marshal message: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		return fmt.Errorf("mail: publish: %w", err)
	}
	return nil
}
