package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

// AggregateOrder: тип агрегата для событий outbox.
const AggregateOrder = "order"

// OutboxObserver сохраняет события в outbox для последующей публикации в Kafka.
type OutboxObserver struct {
	repo domain.OutboxRepository
}

// NewOutboxObserver создаёт наблюдателя поверх outbox-репозитория.
func NewOutboxObserver(repo domain.OutboxRepository) *OutboxObserver {
	return &OutboxObserver{repo: repo}
}

func (o *OutboxObserver) Observe(_ context.Context, event domain.Event) error {
	if o.repo == nil {
		return fmt.Errorf("outbox repository is not configured")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event.EventName(), err)
	}

	if _, err := o.repo.Enqueue(domain.OutboxMessage{
		AggregateType: AggregateOrder,
		AggregateID:   strconv.FormatInt(event.AggregateID(), 10),
		EventType:     string(event.EventName()),
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("enqueue %s: %w", event.EventName(), err)
	}
	return nil
}
