package cart

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pdv/internal/discount"
	"pdv/internal/domain"

	"github.com/shopspring/decimal"
)

// ProductReader is the slice of the catalog the cart needs for stock checks.
type ProductReader interface {
	GetProduct(ctx context.Context, ownerID, productID string) (domain.Product, error)
}

type Cart struct {
	mu        sync.Mutex
	id        string
	ownerID   string
	items     []domain.LineItem
	discount  domain.SaleDiscount
	updatedAt time.Time
	// claimed is set while a checkout owns the cart.
	claimed bool
}

// View is a consistent copy of a cart's state.
type View struct {
	ID        string              `json:"id"`
	OwnerID   string              `json:"owner_id"`
	Items     []domain.LineItem   `json:"items"`
	Subtotal  decimal.Decimal     `json:"subtotal"`
	Discount  domain.SaleDiscount `json:"discount"`
	Total     decimal.Decimal     `json:"total"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func New(id, ownerID string) *Cart {
	return &Cart{
		id:        id,
		ownerID:   ownerID,
		items:     make([]domain.LineItem, 0),
		discount:  discount.None(),
		updatedAt: time.Now().UTC(),
	}
}

func (c *Cart) ID() string {
	return c.id
}

func (c *Cart) OwnerID() string {
	return c.ownerID
}

// AddItem adds quantity units of a catalog product, merging into an existing
// line. Tracked products are re-read and the add is rejected when it exceeds
// what is left after the quantity already in the cart.
func (c *Cart) AddItem(ctx context.Context, catalog ProductReader, productID string, quantity int) (domain.LineItem, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.LineItem{}, domain.Invalid("product_id", "is required")
	}
	if quantity <= 0 {
		return domain.LineItem{}, domain.Invalid("quantity", "must be greater than zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return domain.LineItem{}, c.busy()
	}

	product, err := catalog.GetProduct(ctx, c.ownerID, productID)
	if err != nil {
		return domain.LineItem{}, fmt.Errorf("load product %s: %w", productID, err)
	}

	index := c.indexOf("catalog:" + productID)
	inCart := 0
	if index >= 0 {
		inCart = c.items[index].Quantity
	}
	if product.Tracked() && quantity > product.Available()-inCart {
		return domain.LineItem{}, &domain.InsufficientStockError{
			ProductID: product.ID,
			Name:      product.Name,
			Requested: quantity,
			Available: max(product.Available()-inCart, 0),
		}
	}

	if index >= 0 {
		c.items[index] = c.items[index].WithQuantity(inCart + quantity)
		c.touch()
		return c.items[index], nil
	}
	item := domain.NewCatalogItem(product, quantity)
	c.items = append(c.items, item)
	c.touch()
	return item, nil
}

// AddLooseItem appends an item that is not backed by the catalog. Loose
// items never merge, even with another loose item of the same name.
func (c *Cart) AddLooseItem(name string, price decimal.Decimal, quantity int) (domain.LineItem, error) {
	if strings.TrimSpace(name) == "" {
		return domain.LineItem{}, domain.Invalid("name", "is required")
	}
	if !price.IsPositive() {
		return domain.LineItem{}, domain.Invalid("price", "must be greater than zero")
	}
	if quantity <= 0 {
		return domain.LineItem{}, domain.Invalid("quantity", "must be greater than zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return domain.LineItem{}, c.busy()
	}

	item := domain.NewLooseItem(name, price, quantity)
	c.items = append(c.items, item)
	c.touch()
	return item, nil
}

// SetQuantity replaces the quantity of the line identified by key.
func (c *Cart) SetQuantity(ctx context.Context, catalog ProductReader, key string, quantity int) (domain.LineItem, error) {
	if quantity <= 0 {
		return domain.LineItem{}, domain.Invalid("quantity", "must be greater than zero")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return domain.LineItem{}, c.busy()
	}

	index := c.indexOf(key)
	if index < 0 {
		return domain.LineItem{}, &domain.NotFoundError{Entity: "cart item", ID: key}
	}
	item := c.items[index]
	if !item.IsLoose() {
		product, err := catalog.GetProduct(ctx, c.ownerID, item.ProductID)
		if err != nil {
			return domain.LineItem{}, fmt.Errorf("load product %s: %w", item.ProductID, err)
		}
		if product.Tracked() && quantity > product.Available() {
			return domain.LineItem{}, &domain.InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: quantity,
				Available: product.Available(),
			}
		}
	}
	c.items[index] = item.WithQuantity(quantity)
	c.touch()
	return c.items[index], nil
}

func (c *Cart) RemoveItem(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return c.busy()
	}

	index := c.indexOf(key)
	if index < 0 {
		return &domain.NotFoundError{Entity: "cart item", ID: key}
	}
	c.items = append(c.items[:index], c.items[index+1:]...)
	c.touch()
	return nil
}

func (c *Cart) Items() []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.copyItems()
}

func (c *Cart) Subtotal() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.SumSubtotals(c.items)
}

func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *Cart) SetDiscount(d domain.SaleDiscount) error {
	if err := discount.Validate(d); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return c.busy()
	}
	if d.Mode == "" {
		d.Mode = domain.DiscountNone
	}
	c.discount = d
	c.touch()
	return nil
}

func (c *Cart) Discount() domain.SaleDiscount {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discount
}

// Reset empties the cart and clears its discount.
func (c *Cart) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Claim reserves the cart for a checkout and returns a copy of its items and
// discount. Until Release is called a second Claim and every change to the
// cart fail with a ConflictError.
func (c *Cart) Claim() ([]domain.LineItem, domain.SaleDiscount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return nil, domain.SaleDiscount{}, c.busy()
	}
	c.claimed = true
	return c.copyItems(), c.discount, nil
}

// Release ends a claim. A sold cart is emptied, otherwise it is left as it
// was claimed.
func (c *Cart) Release(sold bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claimed = false
	if sold {
		c.reset()
	}
}

func (c *Cart) reset() {
	c.items = make([]domain.LineItem, 0)
	c.discount = discount.None()
	c.touch()
}

func (c *Cart) busy() error {
	return &domain.ConflictError{Entity: "cart", ID: c.id, Reason: "checkout in progress"}
}

func (c *Cart) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	subtotal := domain.SumSubtotals(c.items)
	resolved, total := discount.Resolve(subtotal, c.discount)
	return View{
		ID:        c.id,
		OwnerID:   c.ownerID,
		Items:     c.copyItems(),
		Subtotal:  subtotal,
		Discount:  resolved,
		Total:     total,
		UpdatedAt: c.updatedAt,
	}
}

func (c *Cart) indexOf(key string) int {
	for i, item := range c.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (c *Cart) copyItems() []domain.LineItem {
	items := make([]domain.LineItem, len(c.items))
	copy(items, c.items)
	return items
}

func (c *Cart) touch() {
	c.updatedAt = time.Now().UTC()
}
