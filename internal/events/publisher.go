// Package events publishes fire-and-forget telemetry to RabbitMQ. Telemetry
// is the only fire-and-forget path in the system: a broker outage is logged
// and otherwise invisible to the turn being processed.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type envelope struct {
	Event   string    `json:"event"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// Publisher emits JSON events to a durable queue. A nil Publisher is valid
// and drops everything.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

func New(url, queue string, logger *zap.Logger) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	declared, err := channel.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}

	return &Publisher{conn: conn, channel: channel, queue: declared, logger: logger}, nil
}

// Emit publishes one event. Failures are logged, never returned: telemetry
// must not affect the outcome of the turn that produced it.
func (p *Publisher) Emit(ctx context.Context, kind string, payload any) {
	if p == nil || p.channel == nil {
		return
	}

	body, err := json.Marshal(envelope{Event: kind, At: time.Now().UTC(), Payload: payload})
	if err != nil {
		p.logger.Warn("marshal event", zap.String("event", kind), zap.Error(err))
		return
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		publishCtx,
		"",           // exchange
		p.queue.Name, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		p.logger.Warn("publish event", zap.String("event", kind), zap.Error(err))
	}
}

func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
