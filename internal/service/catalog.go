package service

import (
	"context"
	"strings"

	"pdv/internal/domain"
	"pdv/internal/store"

	"go.uber.org/zap"
)

func (s *Service) ListProducts(ctx context.Context, sess domain.Session, search string, limit, offset int) ([]domain.Product, error) {
	products, err := s.store.ListProducts(ctx, sess.OwnerID, store.ProductFilter{
		Search: strings.TrimSpace(search),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, storeErr("list products", err)
	}
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, sess domain.Session, productID string) (domain.Product, error) {
	product, err := s.store.GetProduct(ctx, sess.OwnerID, productID)
	if err != nil {
		return domain.Product{}, storeErr("get product", err)
	}
	return product, nil
}

// ImportCatalog upserts catalog rows by case-insensitive name.
func (s *Service) ImportCatalog(ctx context.Context, sess domain.Session, rows []domain.CatalogImportRow) (int, int, error) {
	if err := requireSession(sess); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, domain.Invalid("rows", "import file has no data rows")
	}
	for _, row := range rows {
		if strings.TrimSpace(row.Name) == "" {
			return 0, 0, domain.Invalid("rows", "row without a name")
		}
		if row.Price.IsNegative() {
			return 0, 0, domain.Invalid("rows", "negative price for "+row.Name)
		}
		if row.Stock != nil && *row.Stock < 0 {
			return 0, 0, domain.Invalid("rows", "negative stock for "+row.Name)
		}
	}
	created, updated, err := s.store.UpsertProducts(ctx, sess.OwnerID, rows)
	if err != nil {
		return 0, 0, s.fail("import catalog", sess, storeErr("upsert products", err))
	}
	s.logger.Info("catalog imported",
		zap.String("owner_id", sess.OwnerID),
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
	return created, updated, nil
}

// ListOpenSales lists the open sales dated within period.
func (s *Service) ListOpenSales(ctx context.Context, sess domain.Session, period domain.Period) ([]domain.Sale, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	sales, err := s.store.ListOpenSales(ctx, sess.OwnerID, period)
	if err != nil {
		return nil, storeErr("list open sales", err)
	}
	return sales, nil
}

// GetSale returns an open or closed sale.
func (s *Service) GetSale(ctx context.Context, sess domain.Session, saleID string) (domain.Sale, error) {
	return findSale(ctx, s.store, sess.OwnerID, saleID)
}

func (s *Service) ListClosedSales(ctx context.Context, sess domain.Session, batchID string, period domain.Period) ([]domain.Sale, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	sales, err := s.store.ListClosedSales(ctx, sess.OwnerID, strings.TrimSpace(batchID), period)
	if err != nil {
		return nil, storeErr("list closed sales", err)
	}
	return sales, nil
}

// ListTillClosings lists closings whose end date falls within period.
func (s *Service) ListTillClosings(ctx context.Context, sess domain.Session, period domain.Period) ([]domain.TillClosing, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	closings, err := s.store.ListTillClosings(ctx, sess.OwnerID, period)
	if err != nil {
		return nil, storeErr("list till closings", err)
	}
	return closings, nil
}

type SalesSummary struct {
	SaleCount  int                  `json:"sale_count"`
	Totals     domain.PaymentTotals `json:"totals"`
	OpenDebt   int                  `json:"open_debt_count"`
	Discounted int                  `json:"discounted_count"`
}

// SalesSummary totals the open sales dated within period per payment method.
func (s *Service) SalesSummary(ctx context.Context, sess domain.Session, period domain.Period) (SalesSummary, error) {
	sales, err := s.ListOpenSales(ctx, sess, period)
	if err != nil {
		return SalesSummary{}, err
	}
	summary := SalesSummary{
		SaleCount: len(sales),
		Totals:    domain.SummarizeByPayment(sales),
	}
	for _, sale := range sales {
		if sale.HasOpenDebt {
			summary.OpenDebt++
		}
		if sale.Discount.Mode == domain.DiscountPercent || sale.Discount.Mode == domain.DiscountAbsolute {
			summary.Discounted++
		}
	}
	return summary, nil
}
