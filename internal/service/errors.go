package service

import (
	"errors"
	"fmt"
)

// ErrOrderInProgress means another request holding the same idempotency key
// has not finished writing its order
var ErrOrderInProgress = errors.New("order with this idempotency key is still being processed")

// ValidationError is a client input problem
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// CustomerPersistenceError means the customer could not be read or written.
// An order flow that sees it must stop.
type CustomerPersistenceError struct {
	Err error
}

func (e *CustomerPersistenceError) Error() string {
	return fmt.Sprintf("customer persistence failed: %v", e.Err)
}

func (e *CustomerPersistenceError) Unwrap() error {
	return e.Err
}

// OrderPersistenceError means the order record was not written
type OrderPersistenceError struct {
	Err error
}

func (e *OrderPersistenceError) Error() string {
	return fmt.Sprintf("order persistence failed: %v", e.Err)
}

func (e *OrderPersistenceError) Unwrap() error {
	return e.Err
}
