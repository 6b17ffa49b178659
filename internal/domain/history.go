package domain

import (
	"fmt"
	"time"
)

const (
	// UpdatedByUnknownModule подставляется, если вызов пришёл не от администратора и не от покупателя.
	UpdatedByUnknownModule = "--"
	// UpdatedByCustomer подставляется для изменений, инициированных покупателем.
	UpdatedByCustomer = "customer"
)

// NotifyFlag управляет видимостью записи истории для покупателя.
type NotifyFlag int8

const (
	// NotifyHidden: запись скрыта от покупателя.
	NotifyHidden NotifyFlag = -1
	// NotifyVisible: покупатель видит запись.
	NotifyVisible NotifyFlag = 0
	// NotifyCustomerNotified: покупатель видит запись и был уведомлён (email).
	NotifyCustomerNotified NotifyFlag = 1
)

// NormalizeNotifyFlag приводит произвольное значение к одному из трёх допустимых.
// Всё, что не 0 и не 1, становится NotifyHidden.
func NormalizeNotifyFlag(v int) NotifyFlag {
	switch v {
	case int(NotifyVisible), int(NotifyCustomerNotified):
		return NotifyFlag(v)
	default:
		return NotifyHidden
	}
}

// HistoryEntry: запись журнала статусов заказа. Записи только добавляются.
type HistoryEntry struct {
	ID        int64
	OrderID   int64
	StatusID  int64
	UpdatedBy string
	DateAdded time.Time
	Notify    NotifyFlag
	// Comment равен nil, если комментарий не передан; в БД хранится NULL.
	Comment *string
}

// AdminLabel формирует подпись администратора в формате "name [id]".
func AdminLabel(admin Admin) string {
	return fmt.Sprintf("%s [%d]", admin.Name, admin.ID)
}
