package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"pdv/internal/discount"
	"pdv/internal/domain"
	"pdv/internal/repository/memory"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type saleTestContext struct {
	store    *memory.Store
	svc      *Service
	sess     domain.Session
	employee string
	products map[string]domain.Product
	cartID   string
	sale     domain.Sale
	closing  domain.TillClosing
	err      error
}

func (c *saleTestContext) reset() {
	c.store = memory.New()
	c.svc = New(c.store, zap.NewNop(), Options{})
	c.sess = domain.Session{OwnerID: "owner-1"}
	c.employee = ""
	c.products = make(map[string]domain.Product)
	c.cartID = ""
	c.sale = domain.Sale{}
	c.closing = domain.TillClosing{}
	c.err = nil
}

func (c *saleTestContext) anEmployee(id string) error {
	c.store.PutEmployee(domain.Employee{ID: id, OwnerID: c.sess.OwnerID, Name: id})
	c.employee = id
	return nil
}

func (c *saleTestContext) aProductPricedWithStock(name, price string, stock int) error {
	amount, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.products[name] = c.store.PutProduct(domain.Product{
		OwnerID: c.sess.OwnerID,
		Name:    name,
		Price:   amount,
		Stock:   &stock,
	})
	return nil
}

func (c *saleTestContext) ensureCart() error {
	if c.cartID != "" {
		return nil
	}
	view, err := c.svc.CreateCart(c.sess)
	if err != nil {
		return err
	}
	c.cartID = view.ID
	return nil
}

func (c *saleTestContext) iAddOfToTheCart(qty int, name string) error {
	if err := c.ensureCart(); err != nil {
		return err
	}
	_, c.err = c.svc.AddCartItem(context.Background(), c.sess, c.cartID, c.products[name].ID, qty)
	return nil
}

func (c *saleTestContext) iCheckOutWithAndAPercentDiscount(method string, percent int) error {
	d := discount.Percent(decimal.NewFromInt(int64(percent)))
	c.sale, c.err = c.svc.Checkout(context.Background(), c.sess, c.cartID, CheckoutInput{
		PaymentMethod: domain.PaymentMethod(method),
		Discount:      &d,
		EmployeeID:    c.employee,
	})
	return c.err
}

func (c *saleTestContext) sellLines(lines map[string]int, loose bool) error {
	c.cartID = ""
	if err := c.ensureCart(); err != nil {
		return err
	}
	for name, qty := range lines {
		if _, err := c.svc.AddCartItem(context.Background(), c.sess, c.cartID, c.products[name].ID, qty); err != nil {
			return err
		}
	}
	if loose {
		if _, err := c.svc.AddLooseCartItem(c.sess, c.cartID, "Avulso", decimal.NewFromInt(1), 1); err != nil {
			return err
		}
	}
	sale, err := c.svc.Checkout(context.Background(), c.sess, c.cartID, CheckoutInput{
		PaymentMethod: domain.PaymentPix,
		EmployeeID:    c.employee,
	})
	if err != nil {
		return err
	}
	c.sale = sale
	return nil
}

func (c *saleTestContext) anOpenSaleWithOf(qty int, name string) error {
	return c.sellLines(map[string]int{name: qty}, false)
}

func (c *saleTestContext) anOpenSaleWithOfOfAndALooseItem(qtyA int, nameA string, qtyB int, nameB string) error {
	return c.sellLines(map[string]int{nameA: qtyA, nameB: qtyB}, true)
}

func (c *saleTestContext) iEditTheSaleToOf(qty int, name string) error {
	items := make([]domain.LineItem, 0, len(c.sale.Items))
	for _, item := range c.sale.Items {
		if item.ProductID == c.products[name].ID {
			item = item.WithQuantity(qty)
		}
		items = append(items, item)
	}
	date := c.sale.CreatedAt
	c.sale, c.err = c.svc.EditSale(context.Background(), c.sess, c.sale.ID, EditInput{
		Items:         items,
		Discount:      c.sale.Discount,
		PaymentMethod: c.sale.PaymentMethod,
		Date:          &date,
		EmployeeID:    c.sale.EmployeeID,
	})
	return c.err
}

func (c *saleTestContext) iCancelTheSale() error {
	c.err = c.svc.CancelSale(context.Background(), c.sess, c.sale.ID)
	return c.err
}

func (c *saleTestContext) iCloseTheTill() error {
	c.closing, c.err = c.svc.CloseTill(context.Background(), c.sess, nil)
	return c.err
}

func (c *saleTestContext) theSaleTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	if !c.sale.Total.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, c.sale.Total)
	}
	return nil
}

func (c *saleTestContext) theStockOfIs(name string, want int) error {
	p, err := c.store.GetProduct(context.Background(), c.sess.OwnerID, c.products[name].ID)
	if err != nil {
		return err
	}
	if p.Stock == nil || *p.Stock != want {
		return fmt.Errorf("expected stock of %s to be %d, got %v", name, want, p.Stock)
	}
	return nil
}

func (c *saleTestContext) theCartRejectsItForInsufficientStock() error {
	var stockErr *domain.InsufficientStockError
	if !errors.As(c.err, &stockErr) {
		return fmt.Errorf("expected insufficient stock, got %v", c.err)
	}
	return nil
}

func (c *saleTestContext) theCartIsEmpty() error {
	view, err := c.svc.GetCart(c.sess, c.cartID)
	if err != nil {
		return err
	}
	if len(view.Items) != 0 {
		return fmt.Errorf("expected empty cart, got %d items", len(view.Items))
	}
	return nil
}

func (c *saleTestContext) theSaleNoLongerExists() error {
	_, err := c.svc.GetSale(context.Background(), c.sess, c.sale.ID)
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("expected sale to be gone, got %v", err)
	}
	return nil
}

func (c *saleTestContext) thereAreNoOpenSales() error {
	open, err := c.svc.ListOpenSales(context.Background(), c.sess, domain.Period{})
	if err != nil {
		return err
	}
	if len(open) != 0 {
		return fmt.Errorf("expected no open sales, got %d", len(open))
	}
	return nil
}

func (c *saleTestContext) theClosedBatchHoldsSaleTotalling(count int, total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	closed, err := c.svc.ListClosedSales(context.Background(), c.sess, c.closing.ID, domain.Period{})
	if err != nil {
		return err
	}
	if len(closed) != count {
		return fmt.Errorf("expected %d closed sales, got %d", count, len(closed))
	}
	if !c.closing.Totals.Total.Equal(want) {
		return fmt.Errorf("expected batch total %s, got %s", want, c.closing.Totals.Total)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &saleTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an employee "([^"]*)"$`, tc.anEmployee)
	ctx.Step(`^a product "([^"]*)" priced (\d+\.\d+) with stock (\d+)$`, tc.aProductPricedWithStock)
	ctx.Step(`^an open sale with (\d+) of "([^"]*)"$`, tc.anOpenSaleWithOf)
	ctx.Step(`^an open sale with (\d+) of "([^"]*)", (\d+) of "([^"]*)" and a loose item$`, tc.anOpenSaleWithOfOfAndALooseItem)

	// When steps
	ctx.Step(`^I add (\d+) of "([^"]*)" to the cart$`, tc.iAddOfToTheCart)
	ctx.Step(`^I check out with "([^"]*)" and a (\d+) percent discount$`, tc.iCheckOutWithAndAPercentDiscount)
	ctx.Step(`^I edit the sale to (\d+) of "([^"]*)"$`, tc.iEditTheSaleToOf)
	ctx.Step(`^I cancel the sale$`, tc.iCancelTheSale)
	ctx.Step(`^I close the till$`, tc.iCloseTheTill)

	// Then steps
	ctx.Step(`^the sale total is (\d+\.\d+)$`, tc.theSaleTotalIs)
	ctx.Step(`^the stock of "([^"]*)" is (\d+)$`, tc.theStockOfIs)
	ctx.Step(`^the cart rejects it for insufficient stock$`, tc.theCartRejectsItForInsufficientStock)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^the sale no longer exists$`, tc.theSaleNoLongerExists)
	ctx.Step(`^there are no open sales$`, tc.thereAreNoOpenSales)
	ctx.Step(`^the closed batch holds (\d+) sales? totalling (\d+\.\d+)$`, tc.theClosedBatchHoldsSaleTotalling)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
