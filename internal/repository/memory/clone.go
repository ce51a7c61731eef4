package memory

import (
	"time"

	"pdv/internal/domain"

	"github.com/shopspring/decimal"
)

func intPtr(v int) *int {
	return &v
}

func cloneProduct(p domain.Product) domain.Product {
	if p.Stock != nil {
		p.Stock = intPtr(*p.Stock)
	}
	if p.CostPrice != nil {
		p.CostPrice = decimalPtr(*p.CostPrice)
	}
	if p.Code != nil {
		code := *p.Code
		p.Code = &code
	}
	if p.SupplierID != nil {
		supplier := *p.SupplierID
		p.SupplierID = &supplier
	}
	return p
}

func cloneSale(s domain.Sale) domain.Sale {
	s.Items = append([]domain.LineItem(nil), s.Items...)
	if s.PaymentDetails != nil {
		details := *s.PaymentDetails
		s.PaymentDetails = &details
	}
	if s.CashReceived != nil {
		s.CashReceived = decimalPtr(*s.CashReceived)
	}
	if s.Change != nil {
		s.Change = decimalPtr(*s.Change)
	}
	if s.CustomerID != nil {
		customer := *s.CustomerID
		s.CustomerID = &customer
	}
	if s.BatchID != nil {
		batch := *s.BatchID
		s.BatchID = &batch
	}
	s.DueDate = timePtr(s.DueDate)
	s.EditedAt = timePtr(s.EditedAt)
	s.ClosedAt = timePtr(s.ClosedAt)
	return s
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func timePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
