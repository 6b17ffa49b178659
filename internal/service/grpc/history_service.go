// Package grpcsvc публикует операции журнала статусов по gRPC.
//
// Сообщения описаны well-known типами protobuf (Struct, Int64Value),
// поэтому сервис не требует сгенерированного кода.
package grpcsvc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/service/history"
)

// ServiceName: полное имя gRPC-сервиса.
const ServiceName = "oms.v1.OrderStatusHistoryService"

const (
	MethodUpdateStatusHistory = "/" + ServiceName + "/UpdateStatusHistory"
	MethodListStatusHistory   = "/" + ServiceName + "/ListStatusHistory"

	MetadataLanguageID = "x-language-id"
	MetadataAdminID    = "x-admin-id"
	MetadataCustomerID = "x-customer-id"

	// noStatusChange: значение orders_status_id, означающее "оставить текущий статус".
	noStatusChange = -1
)

// Поля запроса UpdateStatusHistory.
const (
	fieldOrderID   = "orders_id"
	fieldStatusID  = "orders_status_id"
	fieldComment   = "comments"
	fieldNotify    = "customer_notified"
	fieldUpdatedBy = "updated_by"
)

// HistoryUpdater: операции сервиса истории, доступные транспорту.
type HistoryUpdater interface {
	Update(ctx context.Context, session domain.Session, req history.UpdateRequest) (int64, error)
	List(ctx context.Context, session domain.Session, orderID int64) ([]history.HistoryView, error)
}

// HistoryServer: серверный интерфейс сервиса.
type HistoryServer interface {
	UpdateStatusHistory(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int64Value, error)
	ListStatusHistory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error)
}

// HistoryService реализует HistoryServer поверх history.Service.
type HistoryService struct {
	svc    HistoryUpdater
	logger *log.Entry
}

// NewHistoryService создаёт gRPC-обработчик.
func NewHistoryService(svc HistoryUpdater, logger *log.Entry) *HistoryService {
	if logger == nil {
		logger = log.WithField("component", "grpc-history-service")
	}
	return &HistoryService{svc: svc, logger: logger}
}

// Register регистрирует сервис на gRPC-сервере.
func Register(server grpc.ServiceRegistrar, impl HistoryServer) {
	server.RegisterService(&HistoryServiceDesc, impl)
}

func (s *HistoryService) UpdateStatusHistory(ctx context.Context, req *structpb.Struct) (*wrapperspb.Int64Value, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	session, err := sessionFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	updateReq, err := decodeUpdateRequest(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	id, err := s.svc.Update(ctx, session, updateReq)
	if err != nil {
		return nil, s.toStatus(err, updateReq.OrderID, "update")
	}
	return wrapperspb.Int64(id), nil
}

func (s *HistoryService) ListStatusHistory(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	if req == nil || req.GetValue() <= 0 {
		return nil, status.Error(codes.InvalidArgument, "orders_id must be positive")
	}

	session, err := sessionFromContext(ctx)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	views, err := s.svc.List(ctx, session, req.GetValue())
	if err != nil {
		return nil, s.toStatus(err, req.GetValue(), "list")
	}

	entries := make([]any, 0, len(views))
	for _, view := range views {
		entry := map[string]any{
			"orders_status_history_id": float64(view.ID),
			fieldOrderID:               float64(view.OrderID),
			fieldStatusID:              float64(view.StatusID),
			"orders_status_name":       view.StatusName,
			fieldUpdatedBy:             view.UpdatedBy,
			"date_added":               view.DateAdded.UTC().Format(time.RFC3339),
			fieldNotify:                float64(view.Notify),
			fieldComment:               nil,
		}
		if view.Comment != nil {
			entry[fieldComment] = *view.Comment
		}
		entries = append(entries, entry)
	}

	resp, err := structpb.NewStruct(map[string]any{"entries": entries})
	if err != nil {
		s.logger.WithError(err).Error("failed to encode history response")
		return nil, status.Error(codes.Internal, "failed to encode response")
	}
	return resp, nil
}

func (s *HistoryService) toStatus(err error, orderID int64, operation string) error {
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"orders_id": orderID,
	})

	switch {
	case domain.IsNotFound(err):
		entry.Warn("history request rejected")
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, history.ErrHistoryNotUpdated):
		entry.Error("history write failed")
		return status.Error(codes.Internal, history.ErrHistoryNotUpdated.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		entry.Error("history request failed")
		return status.Error(codes.Internal, "internal error")
	}
}

func sessionFromContext(ctx context.Context) (domain.Session, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	first := func(key string) string {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
		return ""
	}
	return domain.ParseSession(first(MetadataLanguageID), first(MetadataAdminID), first(MetadataCustomerID))
}

func decodeUpdateRequest(req *structpb.Struct) (history.UpdateRequest, error) {
	fields := req.GetFields()

	orderID, ok, err := intField(fields, fieldOrderID)
	if err != nil {
		return history.UpdateRequest{}, err
	}
	if !ok || orderID <= 0 {
		return history.UpdateRequest{}, fmt.Errorf("%s must be a positive integer", fieldOrderID)
	}

	out := history.UpdateRequest{OrderID: orderID, Notify: int(domain.NotifyHidden)}

	statusID, ok, err := intField(fields, fieldStatusID)
	if err != nil {
		return history.UpdateRequest{}, err
	}
	if ok && statusID != noStatusChange {
		out.StatusID = &statusID
	}

	notify, ok, err := intField(fields, fieldNotify)
	if err != nil {
		return history.UpdateRequest{}, err
	}
	if ok {
		out.Notify = clampInt(notify)
	}

	if v, ok := fields[fieldComment]; ok {
		if _, isNull := v.GetKind().(*structpb.Value_NullValue); !isNull {
			comment, isString := v.GetKind().(*structpb.Value_StringValue)
			if !isString {
				return history.UpdateRequest{}, fmt.Errorf("%s must be a string", fieldComment)
			}
			out.Comment = comment.StringValue
		}
	}

	// null или отсутствие поля: автор определяется по сессии; пустая строка сохраняется как есть.
	if v, ok := fields[fieldUpdatedBy]; ok {
		switch kind := v.GetKind().(type) {
		case *structpb.Value_NullValue:
		case *structpb.Value_StringValue:
			updatedBy := kind.StringValue
			out.UpdatedBy = &updatedBy
		default:
			return history.UpdateRequest{}, fmt.Errorf("%s must be a string", fieldUpdatedBy)
		}
	}

	return out, nil
}

// intField читает целое число из Struct. Числа в Struct хранятся как float64, дробные значения отклоняются.
func intField(fields map[string]*structpb.Value, name string) (int64, bool, error) {
	v, ok := fields[name]
	if !ok {
		return 0, false, nil
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, false, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return int64(n), true, nil
	default:
		return 0, false, fmt.Errorf("%s must be a number", name)
	}
}

// clampInt сохраняет "не 0 и не 1" для значений за пределами int.
func clampInt(v int64) int {
	if v > math.MaxInt32 || v < math.MinInt32 {
		return int(domain.NotifyHidden)
	}
	return int(v)
}

var _ HistoryServer = (*HistoryService)(nil)
