// Package discount keeps a percentage and an absolute discount consistent
// against a subtotal. Exactly one of the two is authoritative at a time; the
// other is a derived readout.
package discount

import (
	"pdv/internal/domain"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ApplyPercent returns the exact amount of percent over subtotal.
func ApplyPercent(subtotal, percent decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(percent).Div(hundred)
}

// ApplyAbsolute returns absolute as an exact percentage of subtotal. A zero
// subtotal yields zero.
func ApplyAbsolute(subtotal, absolute decimal.Decimal) decimal.Decimal {
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return absolute.Div(subtotal).Mul(hundred)
}

// FinalTotal is the only place the total is rounded to cents.
func FinalTotal(subtotal, percent, absolute decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(ApplyPercent(subtotal, percent)).Sub(absolute)
	return clamp(total.Round(2))
}

func None() domain.SaleDiscount {
	return domain.SaleDiscount{Mode: domain.DiscountNone}
}

func Percent(percent decimal.Decimal) domain.SaleDiscount {
	return domain.SaleDiscount{Mode: domain.DiscountPercent, Percent: percent}
}

func Absolute(absolute decimal.Decimal) domain.SaleDiscount {
	return domain.SaleDiscount{Mode: domain.DiscountAbsolute, Absolute: absolute}
}

func Validate(d domain.SaleDiscount) error {
	switch d.Mode {
	case "", domain.DiscountNone:
		return nil
	case domain.DiscountPercent:
		if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
			return domain.Invalid("discount.percent", "must be between 0 and 100")
		}
		return nil
	case domain.DiscountAbsolute:
		if d.Absolute.IsNegative() {
			return domain.Invalid("discount.absolute", "cannot be negative")
		}
		return nil
	default:
		return domain.Invalid("discount.mode", "must be none, percent or absolute")
	}
}

// Resolve fills the mirror field of d for subtotal and returns the total
// computed from the authoritative field only. Mirrors are rounded to two
// places for display; the total is rounded once, by FinalTotal.
func Resolve(subtotal decimal.Decimal, d domain.SaleDiscount) (domain.SaleDiscount, decimal.Decimal) {
	switch d.Mode {
	case domain.DiscountPercent:
		resolved := domain.SaleDiscount{
			Mode:     domain.DiscountPercent,
			Percent:  d.Percent,
			Absolute: ApplyPercent(subtotal, d.Percent).Round(2),
		}
		return resolved, FinalTotal(subtotal, d.Percent, decimal.Zero)
	case domain.DiscountAbsolute:
		percent := ApplyAbsolute(subtotal, d.Absolute)
		if percent.GreaterThan(hundred) {
			percent = hundred
		}
		resolved := domain.SaleDiscount{Mode: domain.DiscountAbsolute, Percent: percent.Round(2), Absolute: d.Absolute}
		return resolved, FinalTotal(subtotal, decimal.Zero, d.Absolute)
	default:
		return None(), FinalTotal(subtotal, decimal.Zero, decimal.Zero)
	}
}

func clamp(total decimal.Decimal) decimal.Decimal {
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
