package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusNotFound возвращается, если статус не найден для запрошенного языка.
	ErrStatusNotFound = errors.New("order status not found for language")
	// ErrAdminNotFound возвращается, если администратор не найден.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrHistoryNotFound: для пары (заказ, статус) ещё нет записей истории.
	ErrHistoryNotFound = errors.New("order status history not found")
	// ErrHistoryNotUpdated: запись истории не удалось сохранить.
	ErrHistoryNotUpdated = errors.New("order status history not updated")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsNotFound проверяет, относится ли ошибка к отсутствующим заказу или статусу.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrStatusNotFound)
}
