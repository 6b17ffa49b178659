package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

type statusKey struct {
	languageID int64
	statusID   int64
}

// statusRepositoryInMemory хранит локализованные статусы.
type statusRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[statusKey]domain.Status
}

// DefaultStatuses: стандартный набор статусов магазина для языка с ID 1.
func DefaultStatuses() []domain.Status {
	return []domain.Status{
		{ID: 1, LanguageID: 1, Name: "Pending"},
		{ID: 2, LanguageID: 1, Name: "Processing"},
		{ID: 3, LanguageID: 1, Name: "Delivered"},
		{ID: 4, LanguageID: 1, Name: "Update"},
	}
}

// NewStatusRepository создаёт in-memory справочник статусов.
func NewStatusRepository(seed ...domain.Status) domain.StatusRepository {
	repo := &statusRepositoryInMemory{items: make(map[statusKey]domain.Status, len(seed))}
	for _, status := range seed {
		repo.items[statusKey{languageID: status.LanguageID, statusID: status.ID}] = status
	}
	return repo
}

func (r *statusRepositoryInMemory) Get(_ context.Context, languageID, statusID int64) (domain.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.items[statusKey{languageID: languageID, statusID: statusID}]
	if !ok {
		return domain.Status{}, domain.ErrStatusNotFound
	}
	return status, nil
}

func (r *statusRepositoryInMemory) List(_ context.Context, languageID int64) ([]domain.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.Status, 0, len(r.items))
	for key, status := range r.items {
		if key.languageID == languageID {
			result = append(result, status)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

var _ domain.StatusRepository = (*statusRepositoryInMemory)(nil)
