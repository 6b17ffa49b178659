package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

type adminRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[int64]domain.Admin
}

// NewAdminRepository создаёт in-memory реализацию AdminRepository.
func NewAdminRepository(seed ...domain.Admin) domain.AdminRepository {
	repo := &adminRepositoryInMemory{items: make(map[int64]domain.Admin, len(seed))}
	for _, admin := range seed {
		repo.items[admin.ID] = admin
	}
	return repo
}

func (r *adminRepositoryInMemory) Get(_ context.Context, id int64) (domain.Admin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	admin, ok := r.items[id]
	if !ok {
		return domain.Admin{}, domain.ErrAdminNotFound
	}
	return admin, nil
}

var _ domain.AdminRepository = (*adminRepositoryInMemory)(nil)
