package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultLanguageID используется, если язык не передан.
const DefaultLanguageID int64 = 1

// ErrInvalidSession: идентификаторы сессии не являются положительными числами.
var ErrInvalidSession = errors.New("invalid session identifiers")

// ParseSession собирает Session из строковых заголовков транспорта.
// Пустой язык заменяется DefaultLanguageID, пустые admin/customer означают их отсутствие.
func ParseSession(languageID, adminID, customerID string) (Session, error) {
	session := Session{LanguageID: DefaultLanguageID}

	if v := strings.TrimSpace(languageID); v != "" {
		id, err := parsePositiveID(v)
		if err != nil {
			return Session{}, fmt.Errorf("%w: language id %q", ErrInvalidSession, v)
		}
		session.LanguageID = id
	}

	if v := strings.TrimSpace(adminID); v != "" {
		id, err := parsePositiveID(v)
		if err != nil {
			return Session{}, fmt.Errorf("%w: admin id %q", ErrInvalidSession, v)
		}
		session.AdminID = &id
	}

	if v := strings.TrimSpace(customerID); v != "" {
		id, err := parsePositiveID(v)
		if err != nil {
			return Session{}, fmt.Errorf("%w: customer id %q", ErrInvalidSession, v)
		}
		session.CustomerID = &id
	}

	return session, nil
}

func parsePositiveID(v string) (int64, error) {
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, errors.New("must be positive")
	}
	return id, nil
}
