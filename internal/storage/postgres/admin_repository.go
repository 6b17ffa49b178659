package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

type adminRepository struct {
	db *sql.DB
}

// NewAdminRepository создаёт PostgreSQL-реализацию AdminRepository.
func NewAdminRepository(store *Store) domain.AdminRepository {
	return &adminRepository{db: store.DB()}
}

func (r *adminRepository) Get(ctx context.Context, id int64) (domain.Admin, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.Select("id", "name").From("admins").Where("id = ?", id).ToSql()
	if err != nil {
		return domain.Admin{}, fmt.Errorf("build admin query: %w", err)
	}

	var admin domain.Admin
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&admin.ID, &admin.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Admin{}, domain.ErrAdminNotFound
		}
		return domain.Admin{}, fmt.Errorf("select admin: %w", err)
	}

	return admin, nil
}

var _ domain.AdminRepository = (*adminRepository)(nil)
