package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/shop/internal/event"
)

// Notifier доставляет восстановленное событие подписчикам.
type Notifier interface {
	Notify(e event.Event) error
}

// EventRelay декодирует JSON-конверт события и передаёт его диспетчеру.
// Конверт, который нельзя разобрать, помечается ErrMalformedMessage и уходит в DLQ без повторов.
func EventRelay(n Notifier) MessageHandler {
	return func(_ context.Context, message *sarama.ConsumerMessage) error {
		e, err := event.Unmarshal(message.Value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
		}
		return n.Notify(e)
	}
}
