package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pdv/internal/cart"
	"pdv/internal/discount"
	"pdv/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_CashWithPercentDiscount(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(catalogLine("p", 3))

	received := money("20.00")
	sale, err := f.svc.Checkout(f.ctx, f.sess, cartID, CheckoutInput{
		PaymentMethod: domain.PaymentCash,
		Discount:      ptr(discount.Percent(money("10"))),
		EmployeeID:    employeeID,
		CashReceived:  &received,
	})
	require.NoError(t, err)

	assert.True(t, money("15.00").Equal(sale.Subtotal))
	assert.True(t, money("1.50").Equal(sale.Discount.Absolute))
	assert.True(t, money("13.50").Equal(sale.Total))
	assert.True(t, money("13.50").Equal(sale.OriginalTotal))
	require.NotNil(t, sale.Change)
	assert.True(t, money("6.50").Equal(*sale.Change))
	assert.Equal(t, 7, *f.stock("p"))
	assert.False(t, sale.HasOpenDebt)
	assert.Equal(t, domain.SaleOpen, sale.Status)

	view, err := f.svc.GetCart(f.sess, cartID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, domain.DiscountNone, view.Discount.Mode)

	stored, err := f.svc.GetSale(f.ctx, f.sess, sale.ID)
	require.NoError(t, err)
	assert.True(t, money("13.50").Equal(stored.Total))
}

func TestCheckout_UsesCartDiscountByDefault(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(catalogLine("p", 4))
	_, err := f.svc.SetCartDiscount(f.sess, cartID, discount.Absolute(money("2.00")))
	require.NoError(t, err)

	sale, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.NoError(t, err)

	assert.True(t, money("18.00").Equal(sale.Total))
	assert.True(t, money("10").Equal(sale.Discount.Percent))
}

func TestCheckout_MergesQuantitiesPerProduct(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "1.00", ptr(5))
	cartID := f.newCart(catalogLine("p", 2), catalogLine("p", 3))
	f.st.resetCounters()

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.NoError(t, err)

	assert.Equal(t, 0, *f.stock("p"))
	assert.Equal(t, 1, f.st.adjustCalls["p"])
}

func TestCheckout_InsufficientStockWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.product("a", "Arroz", "10.00", ptr(5))
	f.product("b", "Feijão", "8.00", ptr(5))
	cartID := f.newCart(catalogLine("a", 2), catalogLine("b", 4))
	// another terminal sells feijão after it was added to the cart
	f.setStock("b", 1)

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())

	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "b", stockErr.ProductID)
	assert.Equal(t, 1, stockErr.Available)
	assert.Equal(t, 5, *f.stock("a"))
	assert.Equal(t, 1, *f.stock("b"))
	assert.Zero(t, f.st.adjustCalls["a"])

	open, err := f.svc.ListOpenSales(f.ctx, f.sess, domain.Period{})
	require.NoError(t, err)
	assert.Empty(t, open)

	view, err := f.svc.GetCart(f.sess, cartID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestCheckout_InsertFailureRestoresStock(t *testing.T) {
	f := newFixture(t)
	f.product("a", "Arroz", "10.00", ptr(5))
	f.product("b", "Feijão", "8.00", ptr(5))
	cartID := f.newCart(catalogLine("a", 2), catalogLine("b", 4))
	f.st.failInsert = errors.New("connection reset")

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())

	var storeErr *domain.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, 5, *f.stock("a"))
	assert.Equal(t, 5, *f.stock("b"))

	view, err := f.svc.GetCart(f.sess, cartID)
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestCheckout_StaleReadRevertsEarlierDecrements(t *testing.T) {
	f := newFixture(t)
	f.product("a", "Arroz", "10.00", ptr(5))
	f.product("b", "Feijão", "8.00", ptr(5))
	cartID := f.newCart(catalogLine("a", 2), catalogLine("b", 4))
	f.st.beforeAdjust = func(productID string, delta int) error {
		if productID == "b" && delta < 0 {
			f.setStock("b", 3)
		}
		return nil
	}

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())

	var stale *domain.StaleReadError
	require.ErrorAs(t, err, &stale)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "b", stale.ProductID)
	assert.Equal(t, 3, stale.Available)
	assert.Equal(t, 5, *f.stock("a"))
	assert.Equal(t, 3, *f.stock("b"))
}

func TestCheckout_FailedCompensationReportsAppliedDeltas(t *testing.T) {
	f := newFixture(t)
	f.product("a", "Arroz", "10.00", ptr(5))
	f.product("b", "Feijão", "8.00", ptr(5))
	cartID := f.newCart(catalogLine("a", 2), catalogLine("b", 4))
	f.st.failInsert = errors.New("connection reset")
	f.st.beforeAdjust = func(productID string, delta int) error {
		if delta > 0 && productID == "a" {
			return errors.New("store unavailable")
		}
		return nil
	}

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())

	var partial *domain.PartialStockError
	require.ErrorAs(t, err, &partial)
	assert.Equal(t, "checkout", partial.Op)
	assert.Equal(t, []domain.StockDelta{{ProductID: "a", Delta: -2}}, partial.Applied)
	assert.Equal(t, 3, *f.stock("a"))
	assert.Equal(t, 5, *f.stock("b"))
}

func TestCheckout_LooseItemsNeverTouchStock(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(looseLine("Avulso", "3.50", 2))
	f.st.resetCounters()

	sale, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.NoError(t, err)

	assert.True(t, money("7.00").Equal(sale.Total))
	assert.Empty(t, f.st.productReads)
	assert.Empty(t, f.st.adjustCalls)
	assert.Equal(t, 10, *f.stock("p"))
}

func TestCheckout_UntrackedProductIsNotAdjusted(t *testing.T) {
	f := newFixture(t)
	f.product("s", "Sacola", "0.25", nil)
	cartID := f.newCart(catalogLine("s", 40))
	f.st.resetCounters()

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.NoError(t, err)

	assert.Zero(t, f.st.adjustCalls["s"])
	assert.Nil(t, f.stock("s"))
}

func TestCheckout_ValidationOrder(t *testing.T) {
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		empty   bool
		input   CheckoutInput
		field   string
		options func(*Options)
	}{
		{
			name:  "empty cart wins over missing employee",
			empty: true,
			input: CheckoutInput{PaymentMethod: "bogus"},
			field: "items",
		},
		{
			name:  "missing employee wins over bad method",
			input: CheckoutInput{PaymentMethod: "bogus"},
			field: "employee_id",
		},
		{
			name:  "deferred without due date",
			input: CheckoutInput{PaymentMethod: domain.PaymentDeferred, EmployeeID: employeeID, CustomerID: ptr(customerID)},
			field: "due_date",
		},
		{
			name:  "deferred without customer",
			input: CheckoutInput{PaymentMethod: domain.PaymentDeferred, EmployeeID: employeeID, DueDate: &due},
			field: "customer_id",
		},
		{
			name:  "unknown payment method",
			input: CheckoutInput{PaymentMethod: "voucher", EmployeeID: employeeID},
			field: "payment_method",
		},
		{
			name:  "discount out of range",
			input: CheckoutInput{PaymentMethod: domain.PaymentPix, EmployeeID: employeeID, Discount: ptr(discount.Percent(money("101")))},
			field: "discount.percent",
		},
		{
			name:  "unknown employee",
			input: CheckoutInput{PaymentMethod: domain.PaymentPix, EmployeeID: "ghost"},
			field: "employee_id",
		},
		{
			name:  "unknown customer",
			input: CheckoutInput{PaymentMethod: domain.PaymentPix, EmployeeID: employeeID, CustomerID: ptr("ghost")},
			field: "customer_id",
		},
		{
			name:  "too many installments",
			input: CheckoutInput{PaymentMethod: domain.PaymentCredit, EmployeeID: employeeID, Installments: 25},
			field: "installments",
		},
		{
			name:  "cash short of total",
			input: CheckoutInput{PaymentMethod: domain.PaymentCash, EmployeeID: employeeID, CashReceived: ptr(money("9.99"))},
			field: "cash_received",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.product("p", "Pão", "5.00", ptr(10))
			var cartID string
			if tc.empty {
				cartID = f.newCart()
			} else {
				cartID = f.newCart(catalogLine("p", 2))
			}

			_, err := f.svc.Checkout(f.ctx, f.sess, cartID, tc.input)

			var validation *domain.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
			assert.Equal(t, 10, *f.stock("p"))
		})
	}
}

func TestCheckout_DeferredSale(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	sale, err := f.svc.Checkout(f.ctx, f.sess, f.newCart(catalogLine("p", 1)), CheckoutInput{
		PaymentMethod: domain.PaymentDeferred,
		EmployeeID:    employeeID,
		CustomerID:    ptr(customerID),
		DueDate:       &due,
	})
	require.NoError(t, err)

	assert.True(t, sale.HasOpenDebt)
	require.NotNil(t, sale.DueDate)
	assert.True(t, due.Equal(*sale.DueDate))
}

func TestCheckout_AnonymousDebtWhenAllowed(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.AllowAnonymousDebt = true })
	f.product("p", "Pão", "5.00", ptr(10))
	due := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	sale, err := f.svc.Checkout(f.ctx, f.sess, f.newCart(catalogLine("p", 1)), CheckoutInput{
		PaymentMethod: domain.PaymentDeferred,
		EmployeeID:    employeeID,
		DueDate:       &due,
	})
	require.NoError(t, err)
	assert.Nil(t, sale.CustomerID)
	assert.True(t, sale.HasOpenDebt)
}

func TestCheckout_CreditInstallments(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "50.00", ptr(10))

	sale, err := f.svc.Checkout(f.ctx, f.sess, f.newCart(catalogLine("p", 2)), CheckoutInput{
		PaymentMethod: domain.PaymentCredit,
		EmployeeID:    employeeID,
		Installments:  3,
		InterestRate:  money("5"),
	})
	require.NoError(t, err)

	require.NotNil(t, sale.PaymentDetails)
	assert.Equal(t, 3, sale.PaymentDetails.Installments)
	assert.True(t, money("105.00").Equal(sale.PaymentDetails.TotalValue))
	assert.True(t, money("35.00").Equal(sale.PaymentDetails.InstallmentValue))
	assert.True(t, money("100.00").Equal(sale.Total))
	assert.Nil(t, sale.Change)
}

func TestCheckout_ForeignCartIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(catalogLine("p", 1))

	_, err := f.svc.Checkout(f.ctx, domain.Session{OwnerID: "intruder"}, cartID, f.pixInput())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinalizeSale_RejectsCartOfAnotherOwner(t *testing.T) {
	f := newFixture(t)
	c := cart.New("c", "someone-else")

	_, err := f.svc.FinalizeSale(f.ctx, f.sess, c, f.pixInput())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinalizeSale_RequiresSession(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.FinalizeSale(f.ctx, domain.Session{}, cart.New("c", ""), f.pixInput())

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCheckout_DoubleSubmitSellsOnce(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(catalogLine("p", 3))

	entered := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	f.st.beforeAdjust = func(string, int) error {
		once.Do(func() { close(entered) })
		<-proceed
		return nil
	}

	var first domain.Sale
	var firstErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		first, firstErr = f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	}()
	<-entered

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	close(proceed)
	<-done

	var conflict *domain.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, cartID, conflict.ID)
	require.NoError(t, firstErr)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, 7, *f.stock("p"))

	open, err := f.svc.ListOpenSales(f.ctx, f.sess, domain.Period{})
	require.NoError(t, err)
	assert.Len(t, open, 1)
	view, err := f.svc.GetCart(f.sess, cartID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCheckout_FailureReleasesCart(t *testing.T) {
	f := newFixture(t)
	f.product("p", "Pão", "5.00", ptr(10))
	cartID := f.newCart(catalogLine("p", 3))
	f.st.failInsert = errors.New("boom")

	_, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.Error(t, err)

	f.st.failInsert = nil
	_, err = f.svc.AddCartItem(f.ctx, f.sess, cartID, "p", 1)
	require.NoError(t, err)
	sale, err := f.svc.Checkout(f.ctx, f.sess, cartID, f.pixInput())
	require.NoError(t, err)
	assert.Equal(t, 4, sale.Items[0].Quantity)
	assert.Equal(t, 6, *f.stock("p"))
}
