package usecase

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// newOutboxEvent сериализует payload в JSON и готовит событие со статусом Pending.
func newOutboxEvent(eventType OutboxEventType, aggregateID int64, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &OutboxEvent{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     data,
		Status:      Pending,
	}, nil
}

// writeOutbox пишет событие в outbox. Вызывать внутри транзакции.
func writeOutbox(ctx context.Context, repo OutboxRepository, eventType OutboxEventType, aggregateID int64, payload any) error {
	event, err := newOutboxEvent(eventType, aggregateID, payload)
	if err != nil {
		return err
	}

	_, err = repo.Create(ctx, event)
	return err
}

type productEvent struct {
	ProductID  int64  `json:"product_id"`
	OwnerID    int64  `json:"owner_id"`
	CategoryID int64  `json:"category_id,omitempty"`
	Title      string `json:"title,omitempty"`
	Price      int64  `json:"price_cents,omitempty"`
}

type orderEvent struct {
	OrderID     int64   `json:"order_id"`
	UserID      int64   `json:"user_id"`
	TotalAmount int64   `json:"total_cents"`
	ProductIDs  []int64 `json:"product_ids"`
}
