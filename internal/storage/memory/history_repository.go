package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

// historyRepositoryInMemory хранит журнал статусов в памяти (для разработки/тестов).
type historyRepositoryInMemory struct {
	mu      sync.RWMutex
	nextID  int64
	entries map[int64][]domain.HistoryEntry
}

// NewHistoryRepository создаёт in-memory реализацию HistoryRepository.
func NewHistoryRepository() domain.HistoryRepository {
	return &historyRepositoryInMemory{entries: make(map[int64][]domain.HistoryEntry)}
}

// Insert присваивает записи следующий ID и сохраняет её.
func (r *historyRepositoryInMemory) Insert(_ context.Context, entry domain.HistoryEntry) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.DateAdded.IsZero() {
		entry.DateAdded = time.Now().UTC()
	}
	if entry.Comment != nil {
		comment := *entry.Comment
		entry.Comment = &comment
	}

	r.entries[entry.OrderID] = append(r.entries[entry.OrderID], entry)
	sort.SliceStable(r.entries[entry.OrderID], func(i, j int) bool {
		return chronological(r.entries[entry.OrderID][i], r.entries[entry.OrderID][j])
	})

	return entry.ID, nil
}

// LatestFor возвращает последнюю запись с указанным статусом.
func (r *historyRepositoryInMemory) LatestFor(_ context.Context, orderID, statusID int64) (domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[orderID]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].StatusID == statusID {
			return entries[i], nil
		}
	}
	return domain.HistoryEntry{}, domain.ErrHistoryNotFound
}

// List возвращает записи заказа в хронологическом порядке.
func (r *historyRepositoryInMemory) List(_ context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.entries[orderID]
	result := make([]domain.HistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func chronological(a, b domain.HistoryEntry) bool {
	if !a.DateAdded.Equal(b.DateAdded) {
		return a.DateAdded.Before(b.DateAdded)
	}
	return a.ID < b.ID
}

var _ domain.HistoryRepository = (*historyRepositoryInMemory)(nil)
