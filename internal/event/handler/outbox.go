package handler

import (
	"fmt"

	"github.com/vladislavdragonenkov/shop/internal/domain"
	"github.com/vladislavdragonenkov/shop/internal/event"
)

// OutboxWriter складывает события в outbox; дальше их публикует outbox worker.
// Запись идёт отдельно от сохранения сущности, уже после него: если процесс
// упадёт между ними, событие в outbox не попадёт.
type OutboxWriter struct {
	repo domain.OutboxRepository
}

// NewOutboxWriter создаёт обработчик, пишущий события в outbox.
func NewOutboxWriter(repo domain.OutboxRepository) *OutboxWriter {
	return &OutboxWriter{repo: repo}
}

func (h *OutboxWriter) Name() string { return "outbox-writer" }

func (h *OutboxWriter) Handle(e event.Event) error {
	payload, err := event.Marshal(e)
	if err != nil {
		return err
	}
	if _, err := h.repo.Enqueue(domain.OutboxMessage{
		AggregateType: e.Type().AggregateType(),
		AggregateID:   e.AggregateID(),
		EventType:     string(e.Type()),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", e.Type(), err)
	}
	return nil
}
