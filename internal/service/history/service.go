// Package history ведёт журнал статусов заказов.
package history

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/metrics"
)

const tracerName = "github.com/vladislavdragonenkov/oms-history/internal/service/history"

// Sentinel-ошибки операции. Для проверки используйте errors.Is.
var (
	ErrOrderNotFound     = domain.ErrOrderNotFound
	ErrStatusNotFound    = domain.ErrStatusNotFound
	ErrHistoryNotUpdated = domain.ErrHistoryNotUpdated
)

// UpdateRequest: входные данные обновления истории.
type UpdateRequest struct {
	OrderID int64
	Comment string
	// StatusID == nil означает "оставить текущий статус".
	StatusID *int64
	// Notify приводится к -1, 0 или 1.
	Notify int
	// UpdatedBy == nil означает "определить по сессии".
	UpdatedBy *string
}

// HistoryView: запись истории с названием статуса на языке сессии.
type HistoryView struct {
	domain.HistoryEntry
	StatusName string
}

// Dependencies: зависимости сервиса.
type Dependencies struct {
	Orders   domain.OrderRepository
	Statuses domain.StatusRepository
	Admins   domain.AdminRepository
	History  domain.HistoryRepository
	Notifier domain.EventNotifier
	Metrics  *metrics.HistoryMetrics
	Logger   *log.Entry
	Tracer   trace.Tracer
	Now      func() time.Time
}

// Service реализует обновление и чтение журнала статусов.
type Service struct {
	orders   domain.OrderRepository
	statuses domain.StatusRepository
	admins   domain.AdminRepository
	history  domain.HistoryRepository
	notifier domain.EventNotifier
	metrics  *metrics.HistoryMetrics
	logger   *log.Entry
	tracer   trace.Tracer
	now      func() time.Time
}

// NewService создаёт сервис. Репозитории обязательны, остальное имеет значения по умолчанию.
func NewService(deps Dependencies) (*Service, error) {
	if deps.Orders == nil || deps.Statuses == nil || deps.Admins == nil || deps.History == nil {
		return nil, errors.New("history service requires order, status, admin and history repositories")
	}

	s := &Service{
		orders:   deps.Orders,
		statuses: deps.Statuses,
		admins:   deps.Admins,
		history:  deps.History,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		now:      deps.Now,
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	if s.logger == nil {
		s.logger = log.WithField("component", "order-status-history")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s, nil
}

// Update добавляет запись в историю статусов заказа и, если статус меняется,
// обновляет текущий статус заказа. Возвращает ID созданной или найденной записи.
//
// Смена статуса заказа и вставка записи не атомарны: при ошибке вставки
// заказ остаётся в новом статусе.
func (s *Service) Update(ctx context.Context, session domain.Session, req UpdateRequest) (id int64, err error) {
	ctx, span := s.tracer.Start(ctx, "history.UpdateOrderStatusHistory",
		trace.WithAttributes(attribute.Int64("order.id", req.OrderID)))
	defer span.End()

	started := time.Now()
	result := metrics.ResultError
	defer func() {
		s.metrics.RecordUpdate(result, time.Since(started))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
		}
	}()

	logger := s.logger.WithField("orders_id", req.OrderID)

	order, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			result = metrics.ResultOrderNotFound
			logWithStack(logger, err).Error("order not found")
			return 0, ErrOrderNotFound
		}
		logWithStack(logger, err).Error("failed to load order")
		return 0, fmt.Errorf("load order %d: %w", req.OrderID, err)
	}

	statusID := order.StatusID
	if req.StatusID != nil {
		status, err := s.statuses.Get(ctx, session.LanguageID, *req.StatusID)
		if err != nil {
			if errors.Is(err, domain.ErrStatusNotFound) {
				result = metrics.ResultStatusNotFound
				logWithStack(logger, err).WithFields(log.Fields{
					"status_id":   *req.StatusID,
					"language_id": session.LanguageID,
				}).Error("order status not found")
				return 0, ErrStatusNotFound
			}
			logWithStack(logger, err).Error("failed to load order status")
			return 0, fmt.Errorf("load status %d: %w", *req.StatusID, err)
		}
		statusID = status.ID
	}
	span.SetAttributes(attribute.Int64("order.status_id", statusID))

	var updatedBy string
	labelResolved := false
	resolveLabel := func() (string, error) {
		if labelResolved {
			return updatedBy, nil
		}
		label, err := s.actorLabel(ctx, session, req.UpdatedBy)
		if err != nil {
			return "", err
		}
		updatedBy, labelResolved = label, true
		return updatedBy, nil
	}

	if statusID != order.StatusID {
		label, err := resolveLabel()
		if err != nil {
			logWithStack(logger, err).Error("failed to resolve actor")
			return 0, err
		}

		if err := s.orders.UpdateStatus(ctx, order.ID, statusID, s.now()); err != nil {
			if errors.Is(err, domain.ErrOrderNotFound) {
				result = metrics.ResultOrderNotFound
				logWithStack(logger, err).Error("order disappeared during status update")
				return 0, ErrOrderNotFound
			}
			logWithStack(logger, err).Error("failed to update order status")
			return 0, fmt.Errorf("update order %d status: %w", order.ID, err)
		}

		s.metrics.RecordStatusChange()
		s.notifier.Notify(ctx, domain.StatusUpdated{
			OrderID:      order.ID,
			PrevStatusID: order.StatusID,
			NextStatusID: statusID,
			UpdatedBy:    label,
			OccurredAt:   s.now(),
		})
	} else if !hasComment(req.Comment) {
		latest, err := s.history.LatestFor(ctx, order.ID, statusID)
		switch {
		case err == nil:
			result = metrics.ResultReused
			logger.WithField("history_id", latest.ID).Debug("status unchanged, reusing latest history entry")
			return latest.ID, nil
		case errors.Is(err, domain.ErrHistoryNotFound):
		default:
			logWithStack(logger, err).Error("failed to load latest history entry")
			return 0, fmt.Errorf("load latest history for order %d: %w", order.ID, err)
		}
	}

	label, err := resolveLabel()
	if err != nil {
		logWithStack(logger, err).Error("failed to resolve actor")
		return 0, err
	}

	entry := domain.HistoryEntry{
		OrderID:   order.ID,
		StatusID:  statusID,
		UpdatedBy: label,
		DateAdded: s.now(),
		Notify:    domain.NormalizeNotifyFlag(req.Notify),
	}
	if hasComment(req.Comment) {
		comment := req.Comment
		entry.Comment = &comment
	}

	entry.ID, err = s.history.Insert(ctx, entry)
	if err != nil || entry.ID == 0 {
		result = metrics.ResultWriteFailed
		fields := log.Fields{
			"status_id":         entry.StatusID,
			"updated_by":        entry.UpdatedBy,
			"customer_notified": entry.Notify,
			"comment":           req.Comment,
		}
		if err == nil {
			err = errors.New("history insert returned empty id")
		}
		logWithStack(logger, err).WithFields(fields).Error("order status history not updated")
		return 0, fmt.Errorf("%w: %v", ErrHistoryNotUpdated, err)
	}

	s.notifier.Notify(ctx, domain.NewHistoryUpdated(entry))

	result = metrics.ResultCreated
	span.SetAttributes(attribute.Int64("history.id", entry.ID))
	logger.WithFields(log.Fields{
		"history_id": entry.ID,
		"status_id":  entry.StatusID,
		"updated_by": entry.UpdatedBy,
	}).Info("order status history updated")

	return entry.ID, nil
}

// List возвращает историю заказа от старых записей к новым.
func (s *Service) List(ctx context.Context, session domain.Session, orderID int64) ([]HistoryView, error) {
	ctx, span := s.tracer.Start(ctx, "history.ListOrderStatusHistory",
		trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	if _, err := s.orders.Get(ctx, orderID); err != nil {
		span.RecordError(err)
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	entries, err := s.history.List(ctx, orderID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list history for order %d: %w", orderID, err)
	}

	statuses, err := s.statuses.List(ctx, session.LanguageID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("list statuses for language %d: %w", session.LanguageID, err)
	}
	names := make(map[int64]string, len(statuses))
	for _, st := range statuses {
		names[st.ID] = st.Name
	}

	views := make([]HistoryView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, HistoryView{HistoryEntry: entry, StatusName: names[entry.StatusID]})
	}
	return views, nil
}

// actorLabel определяет подпись автора изменения, если она не передана явно.
func (s *Service) actorLabel(ctx context.Context, session domain.Session, explicit *string) (string, error) {
	if explicit != nil {
		return *explicit, nil
	}

	switch {
	case session.HasAdmin():
		admin, err := s.admins.Get(ctx, *session.AdminID)
		if err == nil {
			return domain.AdminLabel(admin), nil
		}
		if !errors.Is(err, domain.ErrAdminNotFound) {
			return "", fmt.Errorf("load admin %d: %w", *session.AdminID, err)
		}
		return domain.UpdatedByCustomer, nil
	case session.HasCustomer():
		return domain.UpdatedByCustomer, nil
	default:
		return domain.UpdatedByUnknownModule, nil
	}
}

// hasComment считает отсутствующим пустой комментарий, комментарий из пробелов
// и строку "null" в любом регистре.
func hasComment(comment string) bool {
	trimmed := strings.TrimSpace(comment)
	return trimmed != "" && !strings.EqualFold(trimmed, "null")
}

func logWithStack(logger *log.Entry, err error) *log.Entry {
	return logger.WithError(err).WithField("stack", string(debug.Stack()))
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Event) {}
