// Package notify рассылает события журнала статусов подписчикам.
package notify

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/metrics"
)

// Observer получает события. Возвращённая ошибка только логируется.
type Observer interface {
	Observe(ctx context.Context, event domain.Event) error
}

// ObserverFunc позволяет использовать функцию как Observer.
type ObserverFunc func(ctx context.Context, event domain.Event) error

func (f ObserverFunc) Observe(ctx context.Context, event domain.Event) error {
	return f(ctx, event)
}

// Dispatcher синхронно вызывает наблюдателей в порядке подписки.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []Observer
	logger    *log.Entry
	metrics   *metrics.HistoryMetrics
}

// NewDispatcher создаёт диспетчер. metrics может быть nil.
func NewDispatcher(logger *log.Entry, m *metrics.HistoryMetrics) *Dispatcher {
	if logger == nil {
		logger = log.WithField("component", "history-notifier")
	}
	return &Dispatcher{logger: logger, metrics: m}
}

// Subscribe добавляет наблюдателя в конец списка.
func (d *Dispatcher) Subscribe(observer Observer) {
	if observer == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, observer)
	d.mu.Unlock()
}

// Notify доставляет событие всем наблюдателям. Паника наблюдателя не прерывает рассылку.
func (d *Dispatcher) Notify(ctx context.Context, event domain.Event) {
	if event == nil {
		return
	}

	d.mu.RLock()
	observers := append([]Observer(nil), d.observers...)
	d.mu.RUnlock()

	d.metrics.RecordEvent(string(event.EventName()))

	for i, observer := range observers {
		if err := safeObserve(ctx, observer, event); err != nil {
			d.logger.WithError(err).WithFields(log.Fields{
				"event":     event.EventName(),
				"orders_id": event.AggregateID(),
				"observer":  i,
			}).Warn("event observer failed")
		}
	}
}

func safeObserve(ctx context.Context, observer Observer, event domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return observer.Observe(ctx, event)
}

var _ domain.EventNotifier = (*Dispatcher)(nil)
