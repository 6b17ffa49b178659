package domain

import "time"

// Order: заказ витрины в том объёме, который нужен для ведения истории статусов.
type Order struct {
	ID            int64
	StatusID      int64
	CustomerName  string
	CustomerEmail string
	// LastModified обновляется при каждой смене статуса.
	LastModified time.Time
}

// Status: локализованное название стадии обработки заказа.
// Справочные данные: операция только читает их.
type Status struct {
	ID         int64
	LanguageID int64
	Name       string
}

// Admin описывает администратора магазина.
type Admin struct {
	ID   int64
	Name string
}

// Session передаёт в операцию данные текущего вызывающего: язык и,
// если есть, администратора или покупателя.
type Session struct {
	LanguageID int64
	AdminID    *int64
	CustomerID *int64
}

// HasAdmin сообщает, выполнен ли вызов от имени администратора.
func (s Session) HasAdmin() bool {
	return s.AdminID != nil
}

// HasCustomer сообщает, выполнен ли вызов от имени покупателя.
func (s Session) HasCustomer() bool {
	return s.CustomerID != nil
}
