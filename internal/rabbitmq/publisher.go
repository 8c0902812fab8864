package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ExpiredNotifier публикует уведомления об истёкших подписках
// в очередь notifications.expired.
type ExpiredNotifier struct {
	ch *amqp.Channel
}

// NewExpiredNotifier создает новый экземпляр ExpiredNotifier.
func NewExpiredNotifier(ch *amqp.Channel) *ExpiredNotifier {
	return &ExpiredNotifier{ch: ch}
}

// Publish отправляет сообщение с ключом маршрутизации "expired".
func (n *ExpiredNotifier) Publish(message any) error {
	return PublishMessage(n.ch, "notifications", "expired", message)
}
