// Package memory is a non-transactional in-process implementation of
// store.Store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"pdv/internal/domain"
	"pdv/internal/store"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.RWMutex
	products    map[string]domain.Product
	employees   map[string]domain.Employee
	customers   map[string]domain.Customer
	sales       map[string]domain.Sale
	closedSales map[string]domain.Sale
	closings    map[string]domain.TillClosing
	now         func() time.Time
}

func New() *Store {
	return &Store{
		products:    make(map[string]domain.Product),
		employees:   make(map[string]domain.Employee),
		customers:   make(map[string]domain.Customer),
		sales:       make(map[string]domain.Sale),
		closedSales: make(map[string]domain.Sale),
		closings:    make(map[string]domain.TillClosing),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

// PutProduct inserts or replaces a product. An empty id gets a new uuid.
func (s *Store) PutProduct(p domain.Product) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = cloneProduct(p)
	return cloneProduct(p)
}

func (s *Store) PutEmployee(e domain.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) PutCustomer(c domain.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[c.ID] = c
}

func (s *Store) GetProduct(_ context.Context, ownerID, productID string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return domain.Product{}, &domain.NotFoundError{Entity: "product", ID: productID}
	}
	return cloneProduct(p), nil
}

func (s *Store) ListProducts(_ context.Context, ownerID string, filter store.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.OwnerID != ownerID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		return strings.ToLower(matched[i].Name) < strings.ToLower(matched[j].Name)
	})

	offset := store.NormalizeOffset(filter.Offset)
	limit := store.NormalizeLimit(filter.Limit)
	if offset >= len(matched) {
		return []domain.Product{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}

func (s *Store) UpsertProducts(_ context.Context, ownerID string, rows []domain.CatalogImportRow) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byName := make(map[string]string)
	for id, p := range s.products {
		if p.OwnerID == ownerID {
			byName[strings.ToLower(strings.TrimSpace(p.Name))] = id
		}
	}

	created, updated := 0, 0
	now := s.now()
	for _, row := range rows {
		name := strings.TrimSpace(row.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if id, ok := byName[key]; ok {
			p := s.products[id]
			p.Name = name
			p.Price = row.Price
			if row.CostPrice != nil {
				p.CostPrice = row.CostPrice
			}
			if row.Code != nil {
				p.Code = row.Code
			}
			if row.Stock != nil {
				p.Stock = intPtr(*row.Stock)
			}
			p.UpdatedAt = now
			s.products[id] = cloneProduct(p)
			updated++
			continue
		}
		p := domain.Product{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			Name:      name,
			Price:     row.Price,
			CostPrice: row.CostPrice,
			Code:      row.Code,
			Stock:     row.Stock,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.products[p.ID] = cloneProduct(p)
		byName[key] = p.ID
		created++
	}
	return created, updated, nil
}

func (s *Store) AdjustStock(_ context.Context, ownerID, productID string, delta int) (*int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[productID]
	if !ok || p.OwnerID != ownerID {
		return nil, &domain.NotFoundError{Entity: "product", ID: productID}
	}
	if p.Stock == nil {
		return nil, nil
	}
	next := *p.Stock + delta
	if next < 0 {
		return nil, fmt.Errorf("adjust stock of %s by %d: %w", productID, delta, store.ErrStockConflict)
	}
	p.Stock = intPtr(next)
	p.UpdatedAt = s.now()
	s.products[productID] = p
	return intPtr(next), nil
}

func (s *Store) GetEmployee(_ context.Context, ownerID, employeeID string) (domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.employees[employeeID]
	if !ok || e.OwnerID != ownerID {
		return domain.Employee{}, &domain.NotFoundError{Entity: "employee", ID: employeeID}
	}
	return e, nil
}

func (s *Store) GetCustomer(_ context.Context, ownerID, customerID string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.customers[customerID]
	if !ok || c.OwnerID != ownerID {
		return domain.Customer{}, &domain.NotFoundError{Entity: "customer", ID: customerID}
	}
	return c, nil
}

func (s *Store) InsertSale(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sales[sale.ID]; exists {
		return fmt.Errorf("insert sale %s: duplicate id", sale.ID)
	}
	s.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (s *Store) GetOpenSale(_ context.Context, ownerID, saleID string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.OwnerID != ownerID {
		return domain.Sale{}, &domain.NotFoundError{Entity: "sale", ID: saleID}
	}
	return cloneSale(sale), nil
}

func (s *Store) UpdateOpenSale(_ context.Context, sale domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sales[sale.ID]
	if !ok || current.OwnerID != sale.OwnerID {
		return &domain.NotFoundError{Entity: "sale", ID: sale.ID}
	}
	s.sales[sale.ID] = cloneSale(sale)
	return nil
}

func (s *Store) DeleteOpenSale(_ context.Context, ownerID, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.sales[saleID]
	if !ok || sale.OwnerID != ownerID {
		return &domain.NotFoundError{Entity: "sale", ID: saleID}
	}
	delete(s.sales, saleID)
	return nil
}

// DeleteOpenSales removes every given sale or none of them.
func (s *Store) DeleteOpenSales(_ context.Context, ownerID string, sales []domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, expected := range sales {
		current, ok := s.sales[expected.ID]
		if !ok || current.OwnerID != ownerID {
			return &domain.ConflictError{Entity: "sale", ID: expected.ID, Reason: "no longer open"}
		}
		if current.Revision != expected.Revision {
			return &domain.ConflictError{Entity: "sale", ID: expected.ID, Reason: "changed since it was read"}
		}
	}
	for _, sale := range sales {
		delete(s.sales, sale.ID)
	}
	return nil
}

func (s *Store) ListOpenSales(_ context.Context, ownerID string, period domain.Period) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSales(s.sales, func(sale domain.Sale) bool {
		return sale.OwnerID == ownerID && period.Contains(sale.CreatedAt)
	}), nil
}

func (s *Store) GetClosedSale(_ context.Context, ownerID, saleID string) (domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sale, ok := s.closedSales[saleID]
	if !ok || sale.OwnerID != ownerID {
		return domain.Sale{}, &domain.NotFoundError{Entity: "closed sale", ID: saleID}
	}
	return cloneSale(sale), nil
}

func (s *Store) DeleteClosedSale(_ context.Context, ownerID, saleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sale, ok := s.closedSales[saleID]
	if !ok || sale.OwnerID != ownerID {
		return &domain.NotFoundError{Entity: "closed sale", ID: saleID}
	}
	delete(s.closedSales, saleID)
	return nil
}

func (s *Store) ListClosedSales(_ context.Context, ownerID, batchID string, period domain.Period) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSales(s.closedSales, func(sale domain.Sale) bool {
		if sale.OwnerID != ownerID || !period.Contains(sale.CreatedAt) {
			return false
		}
		return batchID == "" || (sale.BatchID != nil && *sale.BatchID == batchID)
	}), nil
}

func (s *Store) ArchiveSales(_ context.Context, closing domain.TillClosing, sales []domain.Sale) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.closings[closing.ID]; exists {
		return fmt.Errorf("archive sales: closing %s already exists", closing.ID)
	}
	for _, sale := range sales {
		if _, exists := s.closedSales[sale.ID]; exists {
			return fmt.Errorf("archive sales: sale %s already archived", sale.ID)
		}
	}
	for _, sale := range sales {
		s.closedSales[sale.ID] = cloneSale(sale)
	}
	header := closing
	header.SaleIDs = append([]string(nil), closing.SaleIDs...)
	s.closings[closing.ID] = header
	return nil
}

func (s *Store) DeleteTillClosing(_ context.Context, ownerID, batchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	closing, ok := s.closings[batchID]
	if !ok || closing.OwnerID != ownerID {
		return &domain.NotFoundError{Entity: "till closing", ID: batchID}
	}
	for id, sale := range s.closedSales {
		if sale.BatchID != nil && *sale.BatchID == batchID {
			delete(s.closedSales, id)
		}
	}
	delete(s.closings, batchID)
	return nil
}

func (s *Store) ListTillClosings(_ context.Context, ownerID string, period domain.Period) ([]domain.TillClosing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.TillClosing, 0)
	for _, closing := range s.closings {
		if closing.OwnerID != ownerID || !period.Contains(closing.EndDate) {
			continue
		}
		closing.SaleIDs = append([]string(nil), closing.SaleIDs...)
		result = append(result, closing)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].EndDate.After(result[j].EndDate)
	})
	return result, nil
}

func sortedSales(source map[string]domain.Sale, keep func(domain.Sale) bool) []domain.Sale {
	result := make([]domain.Sale, 0)
	for _, sale := range source {
		if keep(sale) {
			result = append(result, cloneSale(sale))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}
