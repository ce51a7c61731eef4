package service

import (
	"context"

	"pdv/internal/cart"
	"pdv/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateCart(sess domain.Session) (cart.View, error) {
	if err := requireSession(sess); err != nil {
		return cart.View{}, err
	}
	return s.carts.Create(sess.OwnerID).View(), nil
}

func (s *Service) GetCart(sess domain.Session, cartID string) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	return c.View(), nil
}

func (s *Service) DeleteCart(sess domain.Session, cartID string) error {
	return s.carts.Delete(sess.OwnerID, cartID)
}

func (s *Service) AddCartItem(ctx context.Context, sess domain.Session, cartID, productID string, quantity int) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	if _, err := c.AddItem(ctx, s.store, productID, quantity); err != nil {
		return cart.View{}, s.fail("add cart item", sess, err, zap.String("cart_id", cartID), zap.String("product_id", productID))
	}
	return c.View(), nil
}

func (s *Service) AddLooseCartItem(sess domain.Session, cartID, name string, price decimal.Decimal, quantity int) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	if _, err := c.AddLooseItem(name, price, quantity); err != nil {
		return cart.View{}, err
	}
	return c.View(), nil
}

func (s *Service) SetCartItemQuantity(ctx context.Context, sess domain.Session, cartID, key string, quantity int) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	if _, err := c.SetQuantity(ctx, s.store, key, quantity); err != nil {
		return cart.View{}, s.fail("set cart quantity", sess, err, zap.String("cart_id", cartID), zap.String("item", key))
	}
	return c.View(), nil
}

func (s *Service) RemoveCartItem(sess domain.Session, cartID, key string) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	if err := c.RemoveItem(key); err != nil {
		return cart.View{}, err
	}
	return c.View(), nil
}

func (s *Service) SetCartDiscount(sess domain.Session, cartID string, d domain.SaleDiscount) (cart.View, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return cart.View{}, err
	}
	if err := c.SetDiscount(d); err != nil {
		return cart.View{}, err
	}
	return c.View(), nil
}

// Checkout finalizes a cart held in the registry.
func (s *Service) Checkout(ctx context.Context, sess domain.Session, cartID string, input CheckoutInput) (domain.Sale, error) {
	c, err := s.carts.Get(sess.OwnerID, cartID)
	if err != nil {
		return domain.Sale{}, err
	}
	return s.FinalizeSale(ctx, sess, c, input)
}
