package domain

import (
	"context"
	"time"
)

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Get возвращает заказ по идентификатору или ErrOrderNotFound, если его нет.
	Get(ctx context.Context, id int64) (Order, error)
	// UpdateStatus меняет текущий статус заказа и отметку последнего изменения.
	UpdateStatus(ctx context.Context, id, statusID int64, modifiedAt time.Time) error
}

// StatusRepository отдаёт локализованные статусы заказов.
type StatusRepository interface {
	// Get возвращает статус для языка или ErrStatusNotFound.
	Get(ctx context.Context, languageID, statusID int64) (Status, error)
	// List возвращает все статусы языка, упорядоченные по ID.
	List(ctx context.Context, languageID int64) ([]Status, error)
}

// AdminRepository отдаёт данные администраторов.
type AdminRepository interface {
	// Get возвращает администратора или ErrAdminNotFound.
	Get(ctx context.Context, id int64) (Admin, error)
}

// HistoryRepository хранит журнал статусов заказов.
type HistoryRepository interface {
	// Insert сохраняет запись и возвращает сгенерированный ID.
	Insert(ctx context.Context, entry HistoryEntry) (int64, error)
	// LatestFor возвращает самую свежую запись для пары (заказ, статус) или ErrHistoryNotFound.
	LatestFor(ctx context.Context, orderID, statusID int64) (HistoryEntry, error)
	// List возвращает записи заказа в хронологическом порядке.
	List(ctx context.Context, orderID int64) ([]HistoryEntry, error)
}
