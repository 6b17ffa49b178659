package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

type statusRepository struct {
	db *sql.DB
}

// NewStatusRepository создаёт PostgreSQL-реализацию StatusRepository.
func NewStatusRepository(store *Store) domain.StatusRepository {
	return &statusRepository{db: store.DB()}
}

func (r *statusRepository) Get(ctx context.Context, languageID, statusID int64) (domain.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select("status_id", "language_id", "name").
		From("order_statuses").
		Where("status_id = ? AND language_id = ?", statusID, languageID).
		ToSql()
	if err != nil {
		return domain.Status{}, fmt.Errorf("build status query: %w", err)
	}

	var status domain.Status
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&status.ID, &status.LanguageID, &status.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Status{}, domain.ErrStatusNotFound
		}
		return domain.Status{}, fmt.Errorf("select status: %w", err)
	}

	return status, nil
}

func (r *statusRepository) List(ctx context.Context, languageID int64) ([]domain.Status, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select("status_id", "language_id", "name").
		From("order_statuses").
		Where("language_id = ?", languageID).
		OrderBy("status_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	defer rows.Close()

	var result []domain.Status
	for rows.Next() {
		var status domain.Status
		if err := rows.Scan(&status.ID, &status.LanguageID, &status.Name); err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		result = append(result, status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status rows: %w", err)
	}

	return result, nil
}

var _ domain.StatusRepository = (*statusRepository)(nil)
