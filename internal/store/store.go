package store

import (
	"context"
	"errors"

	"pdv/internal/domain"
)

var (
	ErrNotFound = domain.ErrNotFound
	// ErrStockConflict is returned by AdjustStock when the guarded update
	// would drive stock below zero.
	ErrStockConflict = errors.New("stock conflict")
)

type ProductFilter struct {
	Search string
	Limit  int
	Offset int
}

// Store is the persistence port of the sale core. Every call is scoped by
// the owner id.
type Store interface {
	GetProduct(ctx context.Context, ownerID, productID string) (domain.Product, error)
	ListProducts(ctx context.Context, ownerID string, filter ProductFilter) ([]domain.Product, error)
	UpsertProducts(ctx context.Context, ownerID string, rows []domain.CatalogImportRow) (created int, updated int, err error)
	// AdjustStock applies a relative delta guarded by stock+delta >= 0 and
	// returns the new stock. Untracked products are left untouched and
	// return nil.
	AdjustStock(ctx context.Context, ownerID, productID string, delta int) (*int, error)

	GetEmployee(ctx context.Context, ownerID, employeeID string) (domain.Employee, error)
	GetCustomer(ctx context.Context, ownerID, customerID string) (domain.Customer, error)

	InsertSale(ctx context.Context, sale domain.Sale) error
	GetOpenSale(ctx context.Context, ownerID, saleID string) (domain.Sale, error)
	UpdateOpenSale(ctx context.Context, sale domain.Sale) error
	DeleteOpenSale(ctx context.Context, ownerID, saleID string) error
	// DeleteOpenSales removes every given sale or none of them. A sale that
	// is gone or whose revision differs from the given copy fails the call
	// with a ConflictError.
	DeleteOpenSales(ctx context.Context, ownerID string, sales []domain.Sale) error
	// ListOpenSales filters on the sale date. Inside a transaction the
	// returned rows stay locked until it ends.
	ListOpenSales(ctx context.Context, ownerID string, period domain.Period) ([]domain.Sale, error)

	GetClosedSale(ctx context.Context, ownerID, saleID string) (domain.Sale, error)
	DeleteClosedSale(ctx context.Context, ownerID, saleID string) error
	ListClosedSales(ctx context.Context, ownerID, batchID string, period domain.Period) ([]domain.Sale, error)
	// ArchiveSales writes the closing header and a verbatim copy of every
	// sale into the closed archive. It never deletes open sales.
	ArchiveSales(ctx context.Context, closing domain.TillClosing, sales []domain.Sale) error
	// DeleteTillClosing removes a closing header together with the sales
	// archived under it.
	DeleteTillClosing(ctx context.Context, ownerID, batchID string) error
	// ListTillClosings filters on the closing end date.
	ListTillClosings(ctx context.Context, ownerID string, period domain.Period) ([]domain.TillClosing, error)
}

// TxStore is implemented by stores that can run a group of calls in one
// atomic transaction. fn receives a Store bound to the transaction.
type TxStore interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return 200
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}

func NormalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
