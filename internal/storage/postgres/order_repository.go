package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Select("id", "status_id", "customer_name", "customer_email", "last_modified").
		From("orders").
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return domain.Order{}, fmt.Errorf("build order query: %w", err)
	}

	var order domain.Order
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&order.ID,
		&order.StatusID,
		&order.CustomerName,
		&order.CustomerEmail,
		&order.LastModified,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}
	order.LastModified = order.LastModified.UTC()

	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, statusID int64, modifiedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query, args, err := psql.
		Update("orders").
		Set("status_id", statusID).
		Set("last_modified", modifiedAt.UTC()).
		Where("id = ?", id).
		ToSql()
	if err != nil {
		return fmt.Errorf("build order update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for order update: %w", err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
