package domain

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ItemKind string

const (
	ItemCatalog ItemKind = "catalog"
	ItemLoose   ItemKind = "loose"
)

// LineItem is one line of a cart or a persisted sale. Catalog lines point at a
// product by ProductID; loose lines carry their own name and price and are
// identified by the LooseID assigned when they are created.
type LineItem struct {
	Kind      ItemKind        `json:"kind"`
	ProductID string          `json:"product_id,omitempty"`
	LooseID   string          `json:"loose_id,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

func NewCatalogItem(product Product, quantity int) LineItem {
	item := LineItem{
		Kind:      ItemCatalog,
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
	}
	item.Recompute()
	return item
}

func NewLooseItem(name string, price decimal.Decimal, quantity int) LineItem {
	item := LineItem{
		Kind:      ItemLoose,
		LooseID:   uuid.NewString(),
		Name:      strings.TrimSpace(name),
		UnitPrice: price,
		Quantity:  quantity,
	}
	item.Recompute()
	return item
}

func (i LineItem) IsLoose() bool {
	return i.Kind == ItemLoose
}

// Key is the identity of the line inside a cart or sale.
func (i LineItem) Key() string {
	if i.Kind == ItemLoose {
		return "loose:" + i.LooseID
	}
	return "catalog:" + i.ProductID
}

func (i *LineItem) Recompute() {
	i.Subtotal = i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// WithQuantity returns a copy of the line with a new quantity and subtotal.
func (i LineItem) WithQuantity(quantity int) LineItem {
	i.Quantity = quantity
	i.Recompute()
	return i
}

func SumSubtotals(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// CatalogQuantities aggregates catalog quantities per product. Loose lines
// are skipped.
func CatalogQuantities(items []LineItem) map[string]int {
	result := make(map[string]int)
	for _, item := range items {
		switch item.Kind {
		case ItemCatalog:
			if item.ProductID == "" {
				continue
			}
			result[item.ProductID] += item.Quantity
		case ItemLoose:
		}
	}
	return result
}
