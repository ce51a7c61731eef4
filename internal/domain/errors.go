package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError is raised when a requested quantity exceeds the
// stock on hand at check time.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// StaleReadError is raised when the guarded stock write finds less stock than
// the preceding read did.
type StaleReadError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *StaleReadError) Error() string {
	return fmt.Sprintf("stock for %q changed concurrently: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *StaleReadError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ConflictError is raised when a record changed, or is in use, while an
// operation depending on its current state was running.
type ConflictError struct {
	Entity string
	ID     string
	Reason string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// StoreError wraps a failed data store call.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// PartialStockError reports stock deltas that stayed applied after an
// operation failed and its compensation could not undo them.
type PartialStockError struct {
	Op      string
	Applied []StockDelta
	Err     error
}

func (e *PartialStockError) Error() string {
	parts := make([]string, 0, len(e.Applied))
	for _, delta := range e.Applied {
		parts = append(parts, fmt.Sprintf("%s:%+d", delta.ProductID, delta.Delta))
	}
	return fmt.Sprintf("%s left stock partially applied [%s]: %v", e.Op, strings.Join(parts, ", "), e.Err)
}

func (e *PartialStockError) Unwrap() error {
	return e.Err
}

// DuplicatedSalesError reports sales that were archived by a till closing
// but could not be removed from the open set afterwards.
type DuplicatedSalesError struct {
	BatchID string
	SaleIDs []string
	Err     error
}

func (e *DuplicatedSalesError) Error() string {
	return fmt.Sprintf("till closing %s archived %d sales but left them open: %v", e.BatchID, len(e.SaleIDs), e.Err)
}

func (e *DuplicatedSalesError) Unwrap() error {
	return e.Err
}
