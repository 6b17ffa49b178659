package integration

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
	"github.com/vladislavdragonenkov/oms-history/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/oms-history/internal/notify"
	grpcsvc "github.com/vladislavdragonenkov/oms-history/internal/service/grpc"
	"github.com/vladislavdragonenkov/oms-history/internal/service/history"
	"github.com/vladislavdragonenkov/oms-history/internal/service/outbox"
	"github.com/vladislavdragonenkov/oms-history/internal/storage/memory"
)

const (
	statusPending    = 1
	statusProcessing = 2
	statusDelivered  = 3
)

// HistoryLifecycleTestSuite прогоняет заказ через несколько смен статуса:
// gRPC-обработчик -> сервис истории -> наблюдатели -> outbox -> Kafka.
type HistoryLifecycleTestSuite struct {
	suite.Suite
	orders   domain.OrderRepository
	history  domain.HistoryRepository
	outbox   domain.OutboxRepository
	producer *mocks.SyncProducer
	worker   *outbox.Worker
	service  *grpcsvc.HistoryService
}

func (s *HistoryLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.orders = memory.NewOrderRepository(domain.Order{ID: 1, StatusID: statusPending, CustomerName: "Jane Roe"})
	s.history = memory.NewHistoryRepository()
	outboxRepo := memory.NewOutboxRepository()
	s.outbox = outboxRepo

	dispatcher := notify.NewDispatcher(logger, nil)
	dispatcher.Subscribe(notify.NewLogObserver(logger))
	dispatcher.Subscribe(notify.NewOutboxObserver(outboxRepo))

	svc, err := history.NewService(history.Dependencies{
		Orders:   s.orders,
		Statuses: memory.NewStatusRepository(memory.DefaultStatuses()...),
		Admins:   memory.NewAdminRepository(domain.Admin{ID: 7, Name: "Ops"}),
		History:  s.history,
		Notifier: dispatcher,
		Logger:   logger,
	})
	require.NoError(s.T(), err)
	s.service = grpcsvc.NewHistoryService(svc, logger)

	s.producer = mocks.NewSyncProducer(s.T(), nil)
	publisher := kafka.NewOutboxPublisher(kafka.NewProducerFromSync(s.producer, logger), kafka.TopicHistoryEvents)
	s.worker = outbox.NewWorker(outboxRepo, publisher, outbox.WithLogger(logger), outbox.WithRetryBaseDelay(0))
}

func (s *HistoryLifecycleTestSuite) TearDownTest() {
	require.NoError(s.T(), s.producer.Close())
}

func (s *HistoryLifecycleTestSuite) adminContext() context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		grpcsvc.MetadataLanguageID, "1",
		grpcsvc.MetadataAdminID, "7",
	))
}

func (s *HistoryLifecycleTestSuite) update(ctx context.Context, fields map[string]any) (int64, error) {
	req, err := structpb.NewStruct(fields)
	require.NoError(s.T(), err)
	resp, err := s.service.UpdateStatusHistory(ctx, req)
	if err != nil {
		return 0, err
	}
	return resp.GetValue(), nil
}

func (s *HistoryLifecycleTestSuite) TestStatusChangesAreJournaledAndPublished() {
	ctx := s.adminContext()

	processingID, err := s.update(ctx, map[string]any{
		"orders_id":         1,
		"orders_status_id":  statusProcessing,
		"comments":          "picked",
		"customer_notified": 1,
	})
	require.NoError(s.T(), err)

	deliveredID, err := s.update(ctx, map[string]any{
		"orders_id":        1,
		"orders_status_id": statusDelivered,
	})
	require.NoError(s.T(), err)
	require.Greater(s.T(), deliveredID, processingID)

	order, err := s.orders.Get(context.Background(), 1)
	require.NoError(s.T(), err)
	require.EqualValues(s.T(), statusDelivered, order.StatusID)

	list, err := s.service.ListStatusHistory(ctx, wrapperspb.Int64(1))
	require.NoError(s.T(), err)
	entries := list.GetFields()["entries"].GetListValue().GetValues()
	require.Len(s.T(), entries, 2)
	first := entries[0].GetStructValue().GetFields()
	require.Equal(s.T(), "Processing", first["orders_status_name"].GetStringValue())
	require.Equal(s.T(), "Ops [7]", first["updated_by"].GetStringValue())
	require.Equal(s.T(), "picked", first["comments"].GetStringValue())

	// две смены статуса: по StatusUpdated и HistoryUpdated на каждую
	var published []kafka.Envelope
	for i := 0; i < 4; i++ {
		s.producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			raw, err := msg.Value.Encode()
			if err != nil {
				return err
			}
			var env kafka.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				return err
			}
			published = append(published, env)
			return nil
		})
	}
	require.Equal(s.T(), 4, s.worker.ProcessOnce(context.Background()))

	require.Len(s.T(), published, 4)
	for _, env := range published {
		require.Equal(s.T(), notify.AggregateOrder, env.AggregateType)
		require.Equal(s.T(), "1", env.AggregateID)
	}
	require.Equal(s.T(), string(domain.EventStatusUpdated), published[0].EventType)
	require.Equal(s.T(), string(domain.EventHistoryUpdated), published[1].EventType)

	var historyEvent map[string]any
	require.NoError(s.T(), json.Unmarshal(published[1].Payload, &historyEvent))
	require.EqualValues(s.T(), processingID, historyEvent["orders_status_history_id"])
}

func (s *HistoryLifecycleTestSuite) TestUnchangedStatusReusesEntryWithoutEvents() {
	ctx := s.adminContext()

	firstID, err := s.update(ctx, map[string]any{"orders_id": 1, "orders_status_id": statusProcessing})
	require.NoError(s.T(), err)

	s.producer.ExpectSendMessageAndSucceed()
	s.producer.ExpectSendMessageAndSucceed()
	require.Equal(s.T(), 2, s.worker.ProcessOnce(context.Background()))

	againID, err := s.update(ctx, map[string]any{"orders_id": 1, "orders_status_id": statusProcessing})
	require.NoError(s.T(), err)
	require.Equal(s.T(), firstID, againID)

	noChangeID, err := s.update(ctx, map[string]any{"orders_id": 1, "orders_status_id": -1})
	require.NoError(s.T(), err)
	require.Equal(s.T(), firstID, noChangeID)

	pending, err := s.outbox.PullPending(10)
	require.NoError(s.T(), err)
	require.Empty(s.T(), pending)
}

func (s *HistoryLifecycleTestSuite) TestCommentOnlyAddsEntryForCustomer() {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		grpcsvc.MetadataLanguageID, "1",
		grpcsvc.MetadataCustomerID, "55",
	))

	id, err := s.update(ctx, map[string]any{"orders_id": 1, "comments": "where is my parcel?", "customer_notified": 0})
	require.NoError(s.T(), err)

	entries, err := s.history.List(context.Background(), 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 1)
	require.Equal(s.T(), id, entries[0].ID)
	require.Equal(s.T(), domain.UpdatedByCustomer, entries[0].UpdatedBy)
	require.EqualValues(s.T(), statusPending, entries[0].StatusID)
	require.Equal(s.T(), domain.NotifyVisible, entries[0].Notify)

	pending, err := s.outbox.PullPending(10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	require.Equal(s.T(), string(domain.EventHistoryUpdated), pending[0].EventType)
	require.Equal(s.T(), strconv.FormatInt(1, 10), pending[0].AggregateID)
}

func (s *HistoryLifecycleTestSuite) TestErrorsMapToStatusCodes() {
	ctx := s.adminContext()

	_, err := s.update(ctx, map[string]any{"orders_id": 404, "orders_status_id": statusProcessing})
	require.Equal(s.T(), codes.NotFound, status.Code(err))

	_, err = s.update(ctx, map[string]any{"orders_id": 1, "orders_status_id": 99})
	require.Equal(s.T(), codes.NotFound, status.Code(err))

	order, err := s.orders.Get(context.Background(), 1)
	require.NoError(s.T(), err)
	require.EqualValues(s.T(), statusPending, order.StatusID)

	entries, err := s.history.List(context.Background(), 1)
	require.NoError(s.T(), err)
	require.Empty(s.T(), entries)
}

func TestHistoryLifecycle(t *testing.T) {
	suite.Run(t, new(HistoryLifecycleTestSuite))
}
