package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultMailQueue = "reviewbase.mail"

// AMQPMailer publishes mail jobs to a durable broker queue. A separate
// delivery worker drains the queue and talks SMTP.
type AMQPMailer struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPMailer validates the broker URL and declares the queue lazily on
// first publish, so the backend can start before the broker.
func NewAMQPMailer(url, queue string) (*AMQPMailer, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url is required")
	}
	queue = strings.TrimSpace(queue)
	if queue == "" {
		queue = defaultMailQueue
	}
	return &AMQPMailer{url: url, queue: queue}, nil
}

// SendConfirmationCode enqueues the signup mail.
func (m *AMQPMailer) SendConfirmationCode(ctx context.Context, email, username, code string) error {
	msg := ConfirmationMessage(email, username, code)
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal mail job: %w", err)
	}
	ch, err := m.channel()
	if err != nil {
		return fmt.Errorf("open mail channel: %w", err)
	}
	err = ch.PublishWithContext(ctx, "", m.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         raw,
	})
	if err != nil {
		// Drop the broken channel; the next publish redials.
		m.reset()
		return fmt.Errorf("publish mail job: %w", err)
	}
	slog.Debug("confirmation mail enqueued", "to", MaskEmail(email), "queue", m.queue)
	return nil
}

// Close releases the broker connection.
func (m *AMQPMailer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch != nil {
		_ = m.ch.Close()
		m.ch = nil
	}
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

func (m *AMQPMailer) channel() (*amqp.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch != nil && !m.ch.IsClosed() {
		return m.ch, nil
	}
	conn, err := amqp.Dial(m.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(m.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	m.conn = conn
	m.ch = ch
	return ch, nil
}

func (m *AMQPMailer) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch != nil {
		_ = m.ch.Close()
		m.ch = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}
