package event

import (
	"encoding/json"
	"log"
	"time"

	"github.com/streadway/amqp"
)

// EventPublisher publishes course/chat/quiz lifecycle events to a topic
// exchange. A nil publisher is valid and drops everything, so callers never
// have to branch on configuration.
type EventPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

func NewEventPublisher(amqpURL, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return &EventPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *EventPublisher) Publish(eventType string, payload interface{}) error {
	if p == nil {
		return nil
	}

	event := map[string]interface{}{
		"type":      eventType,
		"payload":   payload,
		"timestamp": time.Now(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if err := p.channel.Publish(
		p.exchange,
		eventType, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	); err != nil {
		log.Printf("Failed to publish event %s: %v", eventType, err)
		return err
	}
	return nil
}

func (p *EventPublisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
