// Package events publishes integration events to a RabbitMQ topic exchange.
// Everything here is best-effort: the core flows never fail because the
// broker is down or unconfigured.
package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher fans domain events out to interested consumers (analytics,
// search indexing). A nil Publisher is valid and drops everything.
type Publisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// Connect dials the broker and declares the topic exchange. Returns nil
// without error when url is empty so deployments without a broker work.
func Connect(url, exchange string) (*Publisher, error) {
	if url == "" {
		log.Println("[events] AMQP_URL not set, event publishing disabled")
		return nil, nil
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log.Printf("[events] connected, publishing to exchange %q", exchange)
	return &Publisher{conn: conn, channel: ch, exchange: exchange}, nil
}

// Publish sends one JSON event. Callers treat publishing as
// fire-and-forget; a nil receiver drops the event silently.
func (p *Publisher) Publish(routingKey string, payload any) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   time.Now(),
		Body:        body,
	})
}

// Close releases the channel and connection.
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
