package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"pdv/internal/domain"
	"pdv/internal/repository/memory"
	"pdv/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	ownerID    = "owner-1"
	employeeID = "emp-1"
	customerID = "cust-1"
)

// faultStore wraps the memory store with injectable failures and counts
// every stock read and write per product.
type faultStore struct {
	*memory.Store

	mu             sync.Mutex
	failInsert     error
	failUpdate     error
	failDeleteOpen error
	failDeleteMany error
	failDeleteDone error
	failArchive    error
	beforeAdjust   func(productID string, delta int) error
	afterArchive   func()
	productReads   map[string]int
	adjustCalls    map[string]int
}

func newFaultStore() *faultStore {
	return &faultStore{
		Store:        memory.New(),
		productReads: make(map[string]int),
		adjustCalls:  make(map[string]int),
	}
}

func (f *faultStore) GetProduct(ctx context.Context, owner, productID string) (domain.Product, error) {
	f.mu.Lock()
	f.productReads[productID]++
	f.mu.Unlock()
	return f.Store.GetProduct(ctx, owner, productID)
}

func (f *faultStore) AdjustStock(ctx context.Context, owner, productID string, delta int) (*int, error) {
	f.mu.Lock()
	f.adjustCalls[productID]++
	hook := f.beforeAdjust
	f.mu.Unlock()
	if hook != nil {
		if err := hook(productID, delta); err != nil {
			return nil, err
		}
	}
	return f.Store.AdjustStock(ctx, owner, productID, delta)
}

func (f *faultStore) InsertSale(ctx context.Context, sale domain.Sale) error {
	if f.failInsert != nil {
		return f.failInsert
	}
	return f.Store.InsertSale(ctx, sale)
}

func (f *faultStore) UpdateOpenSale(ctx context.Context, sale domain.Sale) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	return f.Store.UpdateOpenSale(ctx, sale)
}

func (f *faultStore) DeleteOpenSale(ctx context.Context, owner, saleID string) error {
	if f.failDeleteOpen != nil {
		return f.failDeleteOpen
	}
	return f.Store.DeleteOpenSale(ctx, owner, saleID)
}

func (f *faultStore) DeleteOpenSales(ctx context.Context, owner string, sales []domain.Sale) error {
	if f.failDeleteMany != nil {
		return f.failDeleteMany
	}
	return f.Store.DeleteOpenSales(ctx, owner, sales)
}

func (f *faultStore) DeleteClosedSale(ctx context.Context, owner, saleID string) error {
	if f.failDeleteDone != nil {
		return f.failDeleteDone
	}
	return f.Store.DeleteClosedSale(ctx, owner, saleID)
}

func (f *faultStore) ArchiveSales(ctx context.Context, closing domain.TillClosing, sales []domain.Sale) error {
	if f.failArchive != nil {
		return f.failArchive
	}
	if hook := f.afterArchive; hook != nil {
		f.afterArchive = nil
		defer hook()
	}
	return f.Store.ArchiveSales(ctx, closing, sales)
}

func (f *faultStore) totalStockAccess(productID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.productReads[productID] + f.adjustCalls[productID]
}

func (f *faultStore) resetCounters() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.productReads = make(map[string]int)
	f.adjustCalls = make(map[string]int)
}

var _ store.Store = (*faultStore)(nil)

type fixture struct {
	t    *testing.T
	st   *faultStore
	svc  *Service
	sess domain.Session
	ctx  context.Context
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	st := newFaultStore()
	st.PutEmployee(domain.Employee{ID: employeeID, OwnerID: ownerID, Name: "Ana"})
	st.PutCustomer(domain.Customer{ID: customerID, OwnerID: ownerID, Name: "João"})

	options := Options{Now: func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) }}
	for _, opt := range opts {
		opt(&options)
	}
	return &fixture{
		t:    t,
		st:   st,
		svc:  New(st, zap.NewNop(), options),
		sess: domain.Session{OwnerID: ownerID},
		ctx:  context.Background(),
	}
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func ptr[T any](v T) *T {
	return &v
}

func (f *fixture) product(id, name, price string, stock *int) domain.Product {
	return f.st.PutProduct(domain.Product{ID: id, OwnerID: ownerID, Name: name, Price: money(price), Stock: stock})
}

func (f *fixture) stock(productID string) *int {
	f.t.Helper()
	p, err := f.st.Store.GetProduct(f.ctx, ownerID, productID)
	require.NoError(f.t, err)
	return p.Stock
}

func (f *fixture) setStock(productID string, stock int) {
	f.t.Helper()
	p, err := f.st.Store.GetProduct(f.ctx, ownerID, productID)
	require.NoError(f.t, err)
	p.Stock = &stock
	f.st.PutProduct(p)
}

type line struct {
	productID string
	qty       int
	looseName string
	price     string
}

func catalogLine(productID string, qty int) line {
	return line{productID: productID, qty: qty}
}

func looseLine(name, price string, qty int) line {
	return line{looseName: name, price: price, qty: qty}
}

// newCart fills a registry cart and returns its id.
func (f *fixture) newCart(lines ...line) string {
	f.t.Helper()
	view, err := f.svc.CreateCart(f.sess)
	require.NoError(f.t, err)
	for _, l := range lines {
		if l.looseName != "" {
			_, err = f.svc.AddLooseCartItem(f.sess, view.ID, l.looseName, money(l.price), l.qty)
		} else {
			_, err = f.svc.AddCartItem(f.ctx, f.sess, view.ID, l.productID, l.qty)
		}
		require.NoError(f.t, err)
	}
	return view.ID
}

func (f *fixture) pixInput() CheckoutInput {
	return CheckoutInput{PaymentMethod: domain.PaymentPix, EmployeeID: employeeID}
}

// sell checks a cart with the given lines out with pix and no discount.
func (f *fixture) sell(lines ...line) domain.Sale {
	f.t.Helper()
	sale, err := f.svc.Checkout(f.ctx, f.sess, f.newCart(lines...), f.pixInput())
	require.NoError(f.t, err)
	return sale
}

func (f *fixture) editInput(sale domain.Sale, items []domain.LineItem) EditInput {
	date := sale.CreatedAt
	return EditInput{
		Items:         items,
		Discount:      sale.Discount,
		PaymentMethod: sale.PaymentMethod,
		Date:          &date,
		EmployeeID:    sale.EmployeeID,
		CustomerID:    sale.CustomerID,
	}
}

func withQuantity(items []domain.LineItem, key string, qty int) []domain.LineItem {
	result := make([]domain.LineItem, 0, len(items))
	for _, item := range items {
		if item.Key() == key {
			item = item.WithQuantity(qty)
		}
		result = append(result, item)
	}
	return result
}
