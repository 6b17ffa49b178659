package kafka

// Топики событий журнала статусов.
const (
	TopicHistoryEvents   = "oms.order.status-history.events"
	TopicDeadLetterQueue = "oms.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
)
