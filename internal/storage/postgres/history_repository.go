package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

var historyColumns = []string{
	"id", "order_id", "status_id", "updated_by", "date_added", "customer_notified", "comment",
}

type historyRepository struct {
	db *sql.DB
}

// NewHistoryRepository создаёт PostgreSQL-реализацию HistoryRepository.
func NewHistoryRepository(store *Store) domain.HistoryRepository {
	return &historyRepository{db: store.DB()}
}

func (r *historyRepository) Insert(ctx context.Context, entry domain.HistoryEntry) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if entry.DateAdded.IsZero() {
		entry.DateAdded = time.Now().UTC()
	}

	var comment sql.NullString
	if entry.Comment != nil && *entry.Comment != "" {
		comment = sql.NullString{String: *entry.Comment, Valid: true}
	}

	query, args, err := psql.
		Insert("order_status_history").
		Columns("order_id", "status_id", "updated_by", "date_added", "customer_notified", "comment").
		Values(entry.OrderID, entry.StatusID, entry.UpdatedBy, entry.DateAdded.UTC(), int16(entry.Notify), comment).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build history insert: %w", err)
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return 0, domain.ErrOrderNotFound
		}
		return 0, fmt.Errorf("insert history entry: %w", err)
	}

	return id, nil
}

func (r *historyRepository) LatestFor(ctx context.Context, orderID, statusID int64) (domain.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select(historyColumns...).
		From("order_status_history").
		Where(sq.Eq{"order_id": orderID, "status_id": statusID}).
		OrderBy("date_added DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return domain.HistoryEntry{}, fmt.Errorf("build latest history query: %w", err)
	}

	entry, err := scanHistoryEntry(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.HistoryEntry{}, domain.ErrHistoryNotFound
		}
		return domain.HistoryEntry{}, fmt.Errorf("select latest history entry: %w", err)
	}

	return entry, nil
}

func (r *historyRepository) List(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select(historyColumns...).
		From("order_status_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("date_added", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history list query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list history entries: %w", err)
	}
	defer rows.Close()

	var result []domain.HistoryEntry
	for rows.Next() {
		entry, err := scanHistoryEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history rows: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistoryEntry(row rowScanner) (domain.HistoryEntry, error) {
	var (
		entry   domain.HistoryEntry
		notify  int16
		comment sql.NullString
	)
	if err := row.Scan(
		&entry.ID,
		&entry.OrderID,
		&entry.StatusID,
		&entry.UpdatedBy,
		&entry.DateAdded,
		&notify,
		&comment,
	); err != nil {
		return domain.HistoryEntry{}, err
	}

	entry.DateAdded = entry.DateAdded.UTC()
	entry.Notify = domain.NotifyFlag(notify)
	if comment.Valid {
		text := comment.String
		entry.Comment = &text
	}
	return entry, nil
}

var _ domain.HistoryRepository = (*historyRepository)(nil)
