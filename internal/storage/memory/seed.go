package memory

import (
	"time"

	"github.com/vladislavdragonenkov/oms-history/internal/domain"
)

// DemoOrderCount совпадает с диапазоном заказов по умолчанию в cmd/loadtest.
const DemoOrderCount = 100

// DemoOrders возвращает заказы 1..DemoOrderCount в статусе Pending для локального запуска.
func DemoOrders(now time.Time) []domain.Order {
	orders := make([]domain.Order, 0, DemoOrderCount)
	for id := int64(1); id <= DemoOrderCount; id++ {
		orders = append(orders, domain.Order{
			ID:           id,
			StatusID:     1,
			LastModified: now,
		})
	}
	return orders
}

// DemoAdmins возвращает администратора с ID 1.
func DemoAdmins() []domain.Admin {
	return []domain.Admin{{ID: 1, Name: "admin"}}
}
