package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const exchangeName = "mbanking.events"

// Producer publishes settlement events to a RabbitMQ topic exchange.
// Consumers (statement builders, push-notification fan-out) bind with
// routing-key patterns such as "transaction.*".
type Producer struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

// NewProducer connects to RabbitMQ and declares the topic exchange
func NewProducer(amqpURL string) (*Producer, error) {
	conn, err := amqp091.Dial(amqpURL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	return &Producer{conn: conn, channel: channel}, nil
}

// Publish marshals body to JSON and sends it with the given routing key
func (p *Producer) Publish(ctx context.Context, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	return p.channel.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			DeliveryMode: amqp091.Persistent,
			Body:         payload,
		},
	)
}

// Close releases the channel and connection
func (p *Producer) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}
