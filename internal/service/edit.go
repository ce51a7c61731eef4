package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pdv/internal/discount"
	"pdv/internal/domain"
	"pdv/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EditInput struct {
	Items         []domain.LineItem
	Discount      domain.SaleDiscount
	PaymentMethod domain.PaymentMethod
	Date          *time.Time
	EmployeeID    string
	CustomerID    *string
	DueDate       *time.Time
	CashReceived  *decimal.Decimal
	Installments  int
	InterestRate  decimal.Decimal
}

// EditSale replaces the items, discount and payment of an open sale and
// reconciles stock by the net per-product difference against the stored
// items. Totals are always recomputed here.
func (s *Service) EditSale(ctx context.Context, sess domain.Session, saleID string, input EditInput) (domain.Sale, error) {
	sale, deltas, err := s.edit(ctx, sess, saleID, input)
	if err != nil {
		return domain.Sale{}, s.fail("edit sale", sess, err, zap.String("sale_id", saleID))
	}
	for productID, delta := range deltas {
		s.logger.Debug("stock reconciled", zap.String("sale_id", saleID), zap.String("product_id", productID), zap.Int("delta", delta))
	}
	s.logger.Info("sale edited",
		zap.String("owner_id", sess.OwnerID),
		zap.String("sale_id", sale.ID),
		zap.Int("revision", sale.Revision),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	return sale, nil
}

func (s *Service) edit(ctx context.Context, sess domain.Session, saleID string, input EditInput) (domain.Sale, map[string]int, error) {
	if err := requireSession(sess); err != nil {
		return domain.Sale{}, nil, err
	}
	items, err := validateEditItems(input.Items)
	if err != nil {
		return domain.Sale{}, nil, err
	}
	if input.Date == nil || input.Date.IsZero() {
		return domain.Sale{}, nil, domain.Invalid("date", "is required")
	}
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	if input.EmployeeID == "" {
		return domain.Sale{}, nil, domain.Invalid("employee_id", "is required")
	}
	if input.PaymentMethod == "" {
		return domain.Sale{}, nil, domain.Invalid("payment_method", "is required")
	}
	if !input.PaymentMethod.Valid() {
		return domain.Sale{}, nil, domain.Invalid("payment_method", "must be cash, pix, credit, debit or deferred")
	}
	input.CustomerID = normalizeNullable(input.CustomerID)
	if input.PaymentMethod == domain.PaymentDeferred {
		if input.DueDate == nil || input.DueDate.IsZero() {
			return domain.Sale{}, nil, domain.Invalid("due_date", "is required for deferred payment")
		}
		if input.CustomerID == nil && !s.allowAnonymousDebt {
			return domain.Sale{}, nil, domain.Invalid("customer_id", "is required for deferred payment")
		}
	}
	if err := discount.Validate(input.Discount); err != nil {
		return domain.Sale{}, nil, err
	}
	if err := s.checkParties(ctx, sess, input.EmployeeID, input.CustomerID); err != nil {
		return domain.Sale{}, nil, err
	}

	subtotal := domain.SumSubtotals(items)
	resolved, total := discount.Resolve(subtotal, input.Discount)
	details, err := paymentDetails(input.PaymentMethod, total, input.Installments, input.InterestRate)
	if err != nil {
		return domain.Sale{}, nil, err
	}
	cashReceived, change, err := cashChange(input.PaymentMethod, total, input.CashReceived)
	if err != nil {
		return domain.Sale{}, nil, err
	}

	var (
		updated domain.Sale
		deltas  map[string]int
	)
	err = s.atomically(ctx, "edit sale", sess.OwnerID, func(st store.Store, ledger *stockLedger) error {
		current, err := s.loadEditable(ctx, st, sess.OwnerID, saleID)
		if err != nil {
			return err
		}

		deltas = netDeltas(current.Items, items)
		plan, err := planStock(ctx, st, sess.OwnerID, deltas)
		if err != nil {
			return err
		}
		if err := ledger.applyPlan(ctx, plan); err != nil {
			return err
		}

		editedAt := s.now()
		updated = current
		updated.Items = items
		updated.Subtotal = subtotal
		updated.Discount = resolved
		updated.Total = total
		updated.PaymentMethod = input.PaymentMethod
		updated.PaymentDetails = details
		updated.CashReceived = cashReceived
		updated.Change = change
		updated.EmployeeID = input.EmployeeID
		updated.CustomerID = input.CustomerID
		updated.CreatedAt = input.Date.UTC()
		updated.HasOpenDebt = input.PaymentMethod == domain.PaymentDeferred
		updated.DueDate = nil
		if input.PaymentMethod == domain.PaymentDeferred {
			due := input.DueDate.UTC()
			updated.DueDate = &due
		}
		updated.Revision = current.Revision + 1
		updated.EditedAt = &editedAt

		if err := st.UpdateOpenSale(ctx, updated); err != nil {
			return storeErr("update sale", err)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, nil, err
	}
	return updated, deltas, nil
}

func (s *Service) loadEditable(ctx context.Context, st store.Store, ownerID, saleID string) (domain.Sale, error) {
	sale, err := st.GetOpenSale(ctx, ownerID, saleID)
	if err == nil {
		return sale, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Sale{}, storeErr("load sale", err)
	}
	if _, closedErr := st.GetClosedSale(ctx, ownerID, saleID); closedErr == nil {
		return domain.Sale{}, domain.Invalid("sale", "closed sales cannot be edited")
	} else if !errors.Is(closedErr, domain.ErrNotFound) {
		return domain.Sale{}, storeErr("load closed sale", closedErr)
	}
	return domain.Sale{}, &domain.NotFoundError{Entity: "sale", ID: saleID}
}

func validateEditItems(items []domain.LineItem) ([]domain.LineItem, error) {
	if len(items) == 0 {
		return nil, domain.Invalid("items", "at least one item is required")
	}
	cleaned := make([]domain.LineItem, 0, len(items))
	for i, item := range items {
		field := fmt.Sprintf("items[%d]", i)
		item.Name = strings.TrimSpace(item.Name)
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.Kind == "" {
			item.Kind = domain.ItemLoose
			if item.ProductID != "" {
				item.Kind = domain.ItemCatalog
			}
		}
		switch item.Kind {
		case domain.ItemCatalog:
			if item.ProductID == "" {
				return nil, domain.Invalid(field+".product_id", "is required")
			}
			item.LooseID = ""
		case domain.ItemLoose:
			item.ProductID = ""
			if item.LooseID == "" {
				item.LooseID = uuid.NewString()
			}
		default:
			return nil, domain.Invalid(field+".kind", "must be catalog or loose")
		}
		if item.Name == "" {
			return nil, domain.Invalid(field+".name", "is required")
		}
		if !item.UnitPrice.IsPositive() {
			return nil, domain.Invalid(field+".unit_price", "must be greater than zero")
		}
		if item.Quantity <= 0 {
			return nil, domain.Invalid(field+".quantity", "must be greater than zero")
		}
		item.Recompute()
		cleaned = append(cleaned, item)
	}
	return cleaned, nil
}
