package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pdv/internal/cart"
	"pdv/internal/discount"
	"pdv/internal/domain"
	"pdv/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const maxInstallments = 24

type CheckoutInput struct {
	PaymentMethod domain.PaymentMethod
	// Discount overrides the cart's discount when set.
	Discount     *domain.SaleDiscount
	EmployeeID   string
	CustomerID   *string
	DueDate      *time.Time
	CashReceived *decimal.Decimal
	Installments int
	InterestRate decimal.Decimal
}

// FinalizeSale turns the cart into a persisted open sale. Stock is decremented
// before the sale is written; the cart is cleared only on success. The cart is
// claimed for the whole call, so a concurrent checkout of it is rejected.
func (s *Service) FinalizeSale(ctx context.Context, sess domain.Session, c *cart.Cart, input CheckoutInput) (domain.Sale, error) {
	sale, err := s.finalize(ctx, sess, c, input)
	if err != nil {
		return domain.Sale{}, s.fail("checkout", sess, err, zap.String("cart_id", c.ID()))
	}
	s.logger.Info("sale finalized",
		zap.String("owner_id", sess.OwnerID),
		zap.String("sale_id", sale.ID),
		zap.String("payment_method", string(sale.PaymentMethod)),
		zap.String("total", sale.Total.StringFixed(2)),
	)
	return sale, nil
}

func (s *Service) finalize(ctx context.Context, sess domain.Session, c *cart.Cart, input CheckoutInput) (domain.Sale, error) {
	if err := requireSession(sess); err != nil {
		return domain.Sale{}, err
	}
	if c.OwnerID() != sess.OwnerID {
		return domain.Sale{}, &domain.NotFoundError{Entity: "cart", ID: c.ID()}
	}

	items, cartDiscount, err := c.Claim()
	if err != nil {
		return domain.Sale{}, err
	}
	sold := false
	defer func() { c.Release(sold) }()

	if len(items) == 0 {
		return domain.Sale{}, domain.Invalid("items", "cart is empty")
	}
	input.EmployeeID = strings.TrimSpace(input.EmployeeID)
	if input.EmployeeID == "" {
		return domain.Sale{}, domain.Invalid("employee_id", "is required")
	}
	input.CustomerID = normalizeNullable(input.CustomerID)
	if input.PaymentMethod == domain.PaymentDeferred {
		if input.DueDate == nil || input.DueDate.IsZero() {
			return domain.Sale{}, domain.Invalid("due_date", "is required for deferred payment")
		}
		if input.CustomerID == nil && !s.allowAnonymousDebt {
			return domain.Sale{}, domain.Invalid("customer_id", "is required for deferred payment")
		}
	}
	if !input.PaymentMethod.Valid() {
		return domain.Sale{}, domain.Invalid("payment_method", "must be cash, pix, credit, debit or deferred")
	}
	chosen := cartDiscount
	if input.Discount != nil {
		chosen = *input.Discount
	}
	if err := discount.Validate(chosen); err != nil {
		return domain.Sale{}, err
	}
	if err := s.checkParties(ctx, sess, input.EmployeeID, input.CustomerID); err != nil {
		return domain.Sale{}, err
	}

	subtotal := domain.SumSubtotals(items)
	resolved, total := discount.Resolve(subtotal, chosen)

	details, err := paymentDetails(input.PaymentMethod, total, input.Installments, input.InterestRate)
	if err != nil {
		return domain.Sale{}, err
	}
	cashReceived, change, err := cashChange(input.PaymentMethod, total, input.CashReceived)
	if err != nil {
		return domain.Sale{}, err
	}

	now := s.now()
	sale := domain.Sale{
		ID:             uuid.NewString(),
		OwnerID:        sess.OwnerID,
		Items:          recomputed(items),
		Subtotal:       subtotal,
		Discount:       resolved,
		Total:          total,
		OriginalTotal:  total,
		PaymentMethod:  input.PaymentMethod,
		PaymentDetails: details,
		CashReceived:   cashReceived,
		Change:         change,
		EmployeeID:     input.EmployeeID,
		CustomerID:     input.CustomerID,
		CreatedAt:      now,
		HasOpenDebt:    input.PaymentMethod == domain.PaymentDeferred,
		Status:         domain.SaleOpen,
	}
	if input.PaymentMethod == domain.PaymentDeferred {
		due := input.DueDate.UTC()
		sale.DueDate = &due
	}

	consumption := make(map[string]int)
	for productID, qty := range domain.CatalogQuantities(items) {
		consumption[productID] = -qty
	}

	err = s.atomically(ctx, "checkout", sess.OwnerID, func(st store.Store, ledger *stockLedger) error {
		plan, err := planStock(ctx, st, sess.OwnerID, consumption)
		if err != nil {
			return err
		}
		if err := ledger.applyPlan(ctx, plan); err != nil {
			return err
		}
		if err := st.InsertSale(ctx, sale); err != nil {
			return storeErr("insert sale", err)
		}
		return nil
	})
	if err != nil {
		return domain.Sale{}, err
	}

	sold = true
	return sale, nil
}

func (s *Service) checkParties(ctx context.Context, sess domain.Session, employeeID string, customerID *string) error {
	if _, err := s.store.GetEmployee(ctx, sess.OwnerID, employeeID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("employee_id", "employee not found")
		}
		return storeErr("load employee", err)
	}
	if customerID == nil {
		return nil
	}
	if _, err := s.store.GetCustomer(ctx, sess.OwnerID, *customerID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Invalid("customer_id", "customer not found")
		}
		return storeErr("load customer", err)
	}
	return nil
}

// paymentDetails builds the installment plan of a card payment. Interest is
// a percentage added once over the sale total.
func paymentDetails(method domain.PaymentMethod, total decimal.Decimal, installments int, interestRate decimal.Decimal) (*domain.PaymentDetails, error) {
	if !method.IsCard() {
		return nil, nil
	}
	if installments == 0 {
		installments = 1
	}
	if installments < 1 || installments > maxInstallments {
		return nil, domain.Invalid("installments", "must be between 1 and 24")
	}
	if interestRate.IsNegative() {
		return nil, domain.Invalid("interest_rate", "cannot be negative")
	}
	if method == domain.PaymentDebit && (installments != 1 || !interestRate.IsZero()) {
		return nil, domain.Invalid("installments", "debit is paid in a single installment")
	}

	withInterest := total.Add(total.Mul(interestRate).Div(decimal.NewFromInt(100))).Round(2)
	return &domain.PaymentDetails{
		Installments:     installments,
		InterestRate:     interestRate,
		InstallmentValue: withInterest.Div(decimal.NewFromInt(int64(installments))).Round(2),
		TotalValue:       withInterest,
	}, nil
}

// cashChange validates the amount handed over for a cash payment and returns
// it with the change due. Other methods carry neither.
func cashChange(method domain.PaymentMethod, total decimal.Decimal, received *decimal.Decimal) (*decimal.Decimal, *decimal.Decimal, error) {
	if method != domain.PaymentCash || received == nil {
		return nil, nil, nil
	}
	if received.LessThan(total) {
		return nil, nil, domain.Invalid("cash_received", "must cover the sale total")
	}
	amount := *received
	change := amount.Sub(total)
	return &amount, &change, nil
}

func recomputed(items []domain.LineItem) []domain.LineItem {
	result := make([]domain.LineItem, len(items))
	for i, item := range items {
		item.Recompute()
		result[i] = item
	}
	return result
}
