package notify

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

// LogObserver пишет строку лога на каждое событие.
type LogObserver struct {
	logger *log.Entry
}

func NewLogObserver(logger *log.Entry) *LogObserver {
	if logger == nil {
		logger = log.WithField("component", "history-events")
	}
	return &LogObserver{logger: logger}
}

func (o *LogObserver) Observe(_ context.Context, event domain.Event) error {
	fields := log.Fields{
		"event":     event.EventName(),
		"orders_id": event.AggregateID(),
	}

	switch e := event.(type) {
	case domain.StatusUpdated:
		fields["prev_status_id"] = e.PrevStatusID
		fields["next_status_id"] = e.NextStatusID
		fields["updated_by"] = e.UpdatedBy
	case domain.HistoryUpdated:
		fields["history_id"] = e.HistoryID
		fields["status_id"] = e.StatusID
		fields["customer_notified"] = e.Notify
		fields["updated_by"] = e.UpdatedBy
	}

	o.logger.WithFields(fields).Info("order status history event")
	return nil
}
