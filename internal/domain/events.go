package domain

import "time"

// EventName: имя события жизненного цикла истории статусов.
type EventName string

const (
	// EventStatusUpdated публикуется при смене текущего статуса заказа.
	EventStatusUpdated EventName = "order.status.updated"
	// EventHistoryUpdated публикуется после записи в историю статусов.
	EventHistoryUpdated EventName = "order.status_history.updated"
)

// Event: типизированное уведомление для наблюдателей.
type Event interface {
	EventName() EventName
	AggregateID() int64
}

// StatusUpdated несёт данные о смене статуса заказа.
type StatusUpdated struct {
	OrderID      int64     `json:"orders_id"`
	PrevStatusID int64     `json:"prev_orders_status_id"`
	NextStatusID int64     `json:"next_orders_status_id"`
	UpdatedBy    string    `json:"updated_by"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func (StatusUpdated) EventName() EventName { return EventStatusUpdated }

func (e StatusUpdated) AggregateID() int64 { return e.OrderID }

// HistoryUpdated несёт все поля созданной записи истории вместе с её ID.
type HistoryUpdated struct {
	HistoryID int64      `json:"orders_status_history_id"`
	OrderID   int64      `json:"orders_id"`
	StatusID  int64      `json:"orders_status_id"`
	UpdatedBy string     `json:"updated_by"`
	DateAdded time.Time  `json:"date_added"`
	Notify    NotifyFlag `json:"customer_notified"`
	Comment   *string    `json:"comments"`
}

func (HistoryUpdated) EventName() EventName { return EventHistoryUpdated }

func (e HistoryUpdated) AggregateID() int64 { return e.OrderID }

// NewHistoryUpdated собирает событие из сохранённой записи.
func NewHistoryUpdated(entry HistoryEntry) HistoryUpdated {
	return HistoryUpdated{
		HistoryID: entry.ID,
		OrderID:   entry.OrderID,
		StatusID:  entry.StatusID,
		UpdatedBy: entry.UpdatedBy,
		DateAdded: entry.DateAdded,
		Notify:    entry.Notify,
		Comment:   entry.Comment,
	}
}
