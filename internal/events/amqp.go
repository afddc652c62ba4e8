package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher forwards bus events to an AMQP topic exchange so external
// collaborators (notification dispatch, live UI) can fan out without a
// process-local subscription.
type Publisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *Publisher) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        b,
	})
}

// Attach subscribes the publisher to a bus. Broker failures are logged and
// dropped; event fan-out is best-effort and must not fail the operation
// that produced the event.
func (p *Publisher) Attach(bus *Bus, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	bus.Subscribe(func(ctx context.Context, ev Event) {
		if err := p.PublishJSON(ctx, ev.RoutingKey(), ev); err != nil {
			log.Warn("event publish failed",
				slog.String("routing_key", ev.RoutingKey()),
				slog.Any("err", err),
			)
		}
	})
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
