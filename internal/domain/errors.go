package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidWebhook  = errors.New("invalid webhook")
	ErrInvalidState    = errors.New("invalid state")
	ErrGateway         = errors.New("payment gateway error")
	ErrConflictOnWrite = errors.New("conflicting write")
)

// NotFoundError names the missing entity. It matches ErrNotFound with errors.Is.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func NotFound(entity string, id int64) error {
	return &NotFoundError{Entity: entity, ID: id}
}

func InvalidState(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

func InvalidWebhook(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidWebhook, fmt.Sprintf(format, args...))
}

func GatewayError(err error) error {
	return fmt.Errorf("%w: %w", ErrGateway, err)
}
