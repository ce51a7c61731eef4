package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"pdv/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

func newID() string {
	return uuid.NewString()
}

func nullDecimal(v decimal.NullDecimal) *decimal.Decimal {
	if !v.Valid {
		return nil
	}
	d := v.Decimal
	return &d
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// withPeriod appends inclusive date bounds on column to a query whose
// placeholders so far are args.
func withPeriod(query string, args []any, column string, period domain.Period) (string, []any) {
	if period.From != nil {
		args = append(args, *period.From)
		query += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if period.To != nil {
		args = append(args, *period.To)
		query += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return query, args
}

// saleArgs lists the sale fields in saleColumns order.
func saleArgs(sale domain.Sale) ([]any, error) {
	items, err := json.Marshal(sale.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	var details []byte
	if sale.PaymentDetails != nil {
		details, err = json.Marshal(sale.PaymentDetails)
		if err != nil {
			return nil, fmt.Errorf("encode payment details: %w", err)
		}
	}
	mode := sale.Discount.Mode
	if mode == "" {
		mode = domain.DiscountNone
	}
	return []any{
		sale.ID,
		sale.OwnerID,
		items,
		sale.Subtotal,
		string(mode),
		sale.Discount.Percent,
		sale.Discount.Absolute,
		sale.Total,
		sale.OriginalTotal,
		string(sale.PaymentMethod),
		details,
		sale.CashReceived,
		sale.Change,
		sale.EmployeeID,
		sale.CustomerID,
		sale.CreatedAt,
		sale.DueDate,
		sale.HasOpenDebt,
		sale.Revision,
		sale.EditedAt,
	}, nil
}

func scanSale(row pgx.Row, closed bool) (domain.Sale, error) {
	var (
		sale         domain.Sale
		items        []byte
		details      []byte
		mode         string
		method       string
		cashReceived decimal.NullDecimal
		change       decimal.NullDecimal
		batchID      *string
		closedAt     *time.Time
	)
	dest := []any{
		&sale.ID,
		&sale.OwnerID,
		&items,
		&sale.Subtotal,
		&mode,
		&sale.Discount.Percent,
		&sale.Discount.Absolute,
		&sale.Total,
		&sale.OriginalTotal,
		&method,
		&details,
		&cashReceived,
		&change,
		&sale.EmployeeID,
		&sale.CustomerID,
		&sale.CreatedAt,
		&sale.DueDate,
		&sale.HasOpenDebt,
		&sale.Revision,
		&sale.EditedAt,
	}
	if closed {
		dest = append(dest, &batchID, &closedAt)
	}
	if err := row.Scan(dest...); err != nil {
		return domain.Sale{}, err
	}

	if err := json.Unmarshal(items, &sale.Items); err != nil {
		return domain.Sale{}, fmt.Errorf("decode items of sale %s: %w", sale.ID, err)
	}
	if len(details) > 0 {
		sale.PaymentDetails = &domain.PaymentDetails{}
		if err := json.Unmarshal(details, sale.PaymentDetails); err != nil {
			return domain.Sale{}, fmt.Errorf("decode payment details of sale %s: %w", sale.ID, err)
		}
	}
	sale.Discount.Mode = domain.DiscountMode(mode)
	sale.PaymentMethod = domain.PaymentMethod(method)
	sale.CashReceived = nullDecimal(cashReceived)
	sale.Change = nullDecimal(change)
	sale.Status = domain.SaleOpen
	if closed {
		sale.Status = domain.SaleClosed
		sale.BatchID = batchID
		sale.ClosedAt = closedAt
	}
	return sale, nil
}
