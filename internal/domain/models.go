package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Session struct {
	OwnerID string `json:"owner_id"`
}

type Product struct {
	ID         string           `json:"id"`
	OwnerID    string           `json:"owner_id"`
	Name       string           `json:"name"`
	Price      decimal.Decimal  `json:"price"`
	CostPrice  *decimal.Decimal `json:"cost_price,omitempty"`
	Code       *string          `json:"code,omitempty"`
	Stock      *int             `json:"stock"`
	SupplierID *string          `json:"supplier_id,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Tracked reports whether the product keeps an on-hand stock count.
func (p Product) Tracked() bool {
	return p.Stock != nil
}

func (p Product) Available() int {
	if p.Stock == nil {
		return 0
	}
	return *p.Stock
}

type Employee struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

type Customer struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
}

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentPix      PaymentMethod = "pix"
	PaymentCredit   PaymentMethod = "credit"
	PaymentDebit    PaymentMethod = "debit"
	PaymentDeferred PaymentMethod = "deferred"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentPix, PaymentCredit, PaymentDebit, PaymentDeferred:
		return true
	}
	return false
}

func (m PaymentMethod) IsCard() bool {
	return m == PaymentCredit || m == PaymentDebit
}

// PaymentDetails describes a card payment split into installments.
type PaymentDetails struct {
	Installments     int             `json:"installments"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	InstallmentValue decimal.Decimal `json:"installment_value"`
	TotalValue       decimal.Decimal `json:"total_value"`
}

type DiscountMode string

const (
	DiscountNone     DiscountMode = "none"
	DiscountPercent  DiscountMode = "percent"
	DiscountAbsolute DiscountMode = "absolute"
)

// SaleDiscount is the persisted form of a discount. Mode names the
// authoritative field; the other one is a mirror kept for display.
type SaleDiscount struct {
	Mode     DiscountMode    `json:"mode"`
	Percent  decimal.Decimal `json:"percent"`
	Absolute decimal.Decimal `json:"absolute"`
}

type SaleStatus string

const (
	SaleOpen   SaleStatus = "open"
	SaleClosed SaleStatus = "closed"
)

type Sale struct {
	ID             string           `json:"id"`
	OwnerID        string           `json:"owner_id"`
	Items          []LineItem       `json:"items"`
	Subtotal       decimal.Decimal  `json:"subtotal"`
	Discount       SaleDiscount     `json:"discount"`
	Total          decimal.Decimal  `json:"total"`
	OriginalTotal  decimal.Decimal  `json:"original_total"`
	PaymentMethod  PaymentMethod    `json:"payment_method"`
	PaymentDetails *PaymentDetails  `json:"payment_details,omitempty"`
	CashReceived   *decimal.Decimal `json:"cash_received,omitempty"`
	Change         *decimal.Decimal `json:"change,omitempty"`
	EmployeeID     string           `json:"employee_id"`
	CustomerID     *string          `json:"customer_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	HasOpenDebt    bool             `json:"has_open_debt"`
	Revision       int              `json:"revision"`
	EditedAt       *time.Time       `json:"edited_at,omitempty"`
	Status         SaleStatus       `json:"status"`
	BatchID        *string          `json:"batch_id,omitempty"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty"`
}

// TillClosing is the header of one closed batch of sales.
type TillClosing struct {
	ID        string        `json:"id"`
	OwnerID   string        `json:"owner_id"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	SaleCount int           `json:"sale_count"`
	Totals    PaymentTotals `json:"totals"`
	SaleIDs   []string      `json:"sale_ids,omitempty"`
}

type PaymentTotals struct {
	Cash     decimal.Decimal `json:"total_cash"`
	Pix      decimal.Decimal `json:"total_pix"`
	Credit   decimal.Decimal `json:"total_credit"`
	Debit    decimal.Decimal `json:"total_debit"`
	Deferred decimal.Decimal `json:"total_deferred"`
	Total    decimal.Decimal `json:"total_sales"`
}

// SummarizeByPayment sums sale totals per payment method.
func SummarizeByPayment(sales []Sale) PaymentTotals {
	var totals PaymentTotals
	for _, sale := range sales {
		switch sale.PaymentMethod {
		case PaymentCash:
			totals.Cash = totals.Cash.Add(sale.Total)
		case PaymentPix:
			totals.Pix = totals.Pix.Add(sale.Total)
		case PaymentCredit:
			totals.Credit = totals.Credit.Add(sale.Total)
		case PaymentDebit:
			totals.Debit = totals.Debit.Add(sale.Total)
		case PaymentDeferred:
			totals.Deferred = totals.Deferred.Add(sale.Total)
		}
		totals.Total = totals.Total.Add(sale.Total)
	}
	return totals
}

type CatalogImportRow struct {
	Name      string           `json:"name"`
	Price     decimal.Decimal  `json:"price"`
	CostPrice *decimal.Decimal `json:"cost_price,omitempty"`
	Code      *string          `json:"code,omitempty"`
	Stock     *int             `json:"stock,omitempty"`
}

// StockDelta is a signed change applied to one product's stock.
type StockDelta struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}
