package rabbitmq

import (
	"fmt"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
)

// Publisher delivers integration events to the fulfillment events exchange.
// The routing key is the event type name, so consumers bind only to the
// event kinds they care about.
type Publisher struct {
	client   *Client
	exchange string
}

// NewPublisher creates a publisher bound to a durable topic exchange.
func NewPublisher(client *Client) (*Publisher, error) {
	exchange := viper.GetString("rabbitmq.events_exchange")
	if exchange == "" {
		exchange = "fulfillment.events"
	}

	err := client.DeclareExchange(DeclareExchangeConfig{
		Name:    exchange,
		Kind:    "topic",
		Durable: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare events exchange: %w", err)
	}

	return &Publisher{client: client, exchange: exchange}, nil
}

// Publish sends one event payload. The correlation id ties the message back
// to the unit of work that recorded it.
func (p *Publisher) Publish(eventTypeName string, payload []byte, correlationID string) error {
	return p.client.Channel().Publish(
		p.exchange,
		eventTypeName,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			Body:          payload,
			CorrelationId: correlationID,
			Type:          eventTypeName,
		},
	)
}
