package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/application/reset"
)

const (
	DefaultExchange = "maintenance.events"

	// RoutingKeyPasswordResetEmail is consumed by the email worker.
	RoutingKeyPasswordResetEmail = "maintenance.email.password_reset.requested"

	defaultPublishWait = 2 * time.Second
)

// EmailRequested is the wire payload handed to the email worker.
type EmailRequested struct {
	Type        string    `json:"type"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	HTML        string    `json:"html"`
	Text        string    `json:"text"`
	RequestedAt time.Time `json:"requested_at"`
}

func newEmailRequested(msg reset.Message, now time.Time) EmailRequested {
	return EmailRequested{
		Type:        "password_reset",
		To:          msg.To,
		Subject:     msg.Subject,
		HTML:        msg.HTML,
		Text:        msg.Text,
		RequestedAt: now.UTC(),
	}
}

// Publisher hands rendered emails to the broker with publisher confirms and
// mandatory routing, so Send only succeeds once a queue holds the message.
type Publisher struct {
	url      string
	exchange string

	mu sync.Mutex

	conn *amqp.Connection
	ch   *amqp.Channel

	confirmCh <-chan amqp.Confirmation
	returnCh  <-chan amqp.Return
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetConn()
	return nil
}

// ---- reset.Mailer ----

func (p *Publisher) Send(ctx context.Context, msg reset.Message) error {
	return p.publishJSON(ctx, RoutingKeyPasswordResetEmail, newEmailRequested(msg, time.Now()))
}

// ---- internal ----

func (p *Publisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}

	p.confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	p.returnCh = ch.NotifyReturn(make(chan amqp.Return, 1))
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *Publisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil {
		return nil
	}
	p.resetConn()
	return p.connect()
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPublishWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	// Drop stale confirms/returns left by an earlier timed-out publish.
drain:
	for {
		select {
		case <-p.confirmCh:
		case <-p.returnCh:
		default:
			break drain
		}
	}

	if err := p.ch.PublishWithContext(ctx, p.exchange, routingKey, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}); err != nil {
		p.resetConn()
		return fmt.Errorf("publish failed: %w", err)
	}

	// The broker sends basic.return before the ack for an unroutable
	// mandatory message.
	select {
	case ret := <-p.returnCh:
		select {
		case <-p.confirmCh:
		case <-ctx.Done():
		}
		return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)

	case conf := <-p.confirmCh:
		select {
		case ret := <-p.returnCh:
			return fmt.Errorf("rabbitmq unroutable: key=%s code=%d text=%s", routingKey, ret.ReplyCode, ret.ReplyText)
		default:
		}
		if !conf.Ack {
			return fmt.Errorf("rabbitmq nack: key=%s deliveryTag=%d", routingKey, conf.DeliveryTag)
		}
		return nil

	case <-ctx.Done():
		return fmt.Errorf("rabbitmq publish: key=%s: %w", routingKey, ctx.Err())
	}
}

func (p *Publisher) resetConn() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
