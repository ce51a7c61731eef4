package service

import (
	"context"
	"errors"

	"pdv/internal/domain"
	"pdv/internal/store"

	"go.uber.org/zap"
)

// CancelSale deletes an open or closed sale after restoring the stock of
// every catalog item it holds. The record is removed only once every
// restoration succeeded.
func (s *Service) CancelSale(ctx context.Context, sess domain.Session, saleID string) error {
	status, err := s.cancel(ctx, sess, saleID)
	if err != nil {
		return s.fail("cancel sale", sess, err, zap.String("sale_id", saleID))
	}
	s.logger.Info("sale canceled",
		zap.String("owner_id", sess.OwnerID),
		zap.String("sale_id", saleID),
		zap.String("status", string(status)),
	)
	return nil
}

func (s *Service) cancel(ctx context.Context, sess domain.Session, saleID string) (domain.SaleStatus, error) {
	if err := requireSession(sess); err != nil {
		return "", err
	}

	var status domain.SaleStatus
	err := s.atomically(ctx, "cancel sale", sess.OwnerID, func(st store.Store, ledger *stockLedger) error {
		sale, err := findSale(ctx, st, sess.OwnerID, saleID)
		if err != nil {
			return err
		}
		status = sale.Status

		restoration := netDeltas(sale.Items, nil)
		plan, err := planStock(ctx, st, sess.OwnerID, restoration)
		if err != nil {
			return err
		}
		if err := ledger.applyPlan(ctx, plan); err != nil {
			return err
		}

		if sale.Status == domain.SaleClosed {
			err = st.DeleteClosedSale(ctx, sess.OwnerID, saleID)
		} else {
			err = st.DeleteOpenSale(ctx, sess.OwnerID, saleID)
		}
		if err != nil {
			return storeErr("delete sale", err)
		}
		return nil
	})
	return status, err
}

// findSale looks the sale up among open sales first, then closed ones.
func findSale(ctx context.Context, st store.Store, ownerID, saleID string) (domain.Sale, error) {
	sale, err := st.GetOpenSale(ctx, ownerID, saleID)
	if err == nil {
		sale.Status = domain.SaleOpen
		return sale, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Sale{}, storeErr("load sale", err)
	}
	sale, err = st.GetClosedSale(ctx, ownerID, saleID)
	if err == nil {
		sale.Status = domain.SaleClosed
		return sale, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Sale{}, storeErr("load closed sale", err)
	}
	return domain.Sale{}, &domain.NotFoundError{Entity: "sale", ID: saleID}
}
