package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

// orderRepositoryInMemory: простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[int64]domain.Order
}

// NewOrderRepository возвращает in-memory репозиторий, заполненный переданными заказами.
func NewOrderRepository(seed ...domain.Order) domain.OrderRepository {
	repo := &orderRepositoryInMemory{
		items: make(map[int64]domain.Order, len(seed)),
	}
	for _, order := range seed {
		repo.items[order.ID] = order
	}
	return repo
}

// Get возвращает заказ или ErrOrderNotFound, если его нет.
func (r *orderRepositoryInMemory) Get(_ context.Context, id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.items[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus меняет статус и время последнего изменения заказа.
func (r *orderRepositoryInMemory) UpdateStatus(_ context.Context, id, statusID int64, modifiedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.items[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.StatusID = statusID
	order.LastModified = modifiedAt
	r.items[id] = order
	return nil
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
