package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pdv/internal/cart"
	"pdv/internal/domain"
	"pdv/internal/store"

	"go.uber.org/zap"
)

type Options struct {
	// AllowAnonymousDebt lets deferred sales go through without a customer.
	AllowAnonymousDebt bool
	Now                func() time.Time
}

type Service struct {
	store              store.Store
	carts              *cart.Registry
	logger             *zap.Logger
	allowAnonymousDebt bool
	now                func() time.Time
}

func New(st store.Store, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:              st,
		carts:              cart.NewRegistry(),
		logger:             logger,
		allowAnonymousDebt: opts.AllowAnonymousDebt,
		now:                now,
	}
}

// atomically runs fn against a transaction when the store supports one.
// Otherwise fn runs directly and every stock delta recorded in the ledger is
// reverted if fn fails.
func (s *Service) atomically(
	ctx context.Context,
	op string,
	ownerID string,
	fn func(st store.Store, ledger *stockLedger) error,
) error {
	if txStore, ok := s.store.(store.TxStore); ok {
		return txStore.WithinTx(ctx, func(tx store.Store) error {
			return fn(tx, newStockLedger(tx, ownerID))
		})
	}

	ledger := newStockLedger(s.store, ownerID)
	err := fn(s.store, ledger)
	if err == nil {
		return nil
	}
	if len(ledger.applied) == 0 {
		return err
	}
	if remaining, revertErr := ledger.revert(context.WithoutCancel(ctx)); revertErr != nil {
		s.logger.Error("stock compensation failed",
			zap.String("op", op),
			zap.String("owner_id", ownerID),
			zap.Any("applied", remaining),
			zap.NamedError("cause", err),
			zap.Error(revertErr),
		)
		return &domain.PartialStockError{Op: op, Applied: remaining, Err: err}
	}
	s.logger.Warn("stock deltas reverted", zap.String("op", op), zap.String("owner_id", ownerID), zap.Error(err))
	return err
}

func (s *Service) fail(op string, sess domain.Session, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("owner_id", sess.OwnerID), zap.Error(err))
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation), errors.Is(err, domain.ErrInsufficientStock), errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict):
		s.logger.Info(op+" rejected", fields...)
	default:
		s.logger.Error(op+" failed", fields...)
	}
	return err
}

func requireSession(sess domain.Session) error {
	if strings.TrimSpace(sess.OwnerID) == "" {
		return domain.Invalid("session", "owner is required")
	}
	return nil
}

// storeErr keeps typed not-found errors and wraps everything else.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	var stale *domain.StaleReadError
	if errors.As(err, &stale) {
		return err
	}
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) {
		return err
	}
	var partial *domain.PartialStockError
	if errors.As(err, &partial) {
		return err
	}
	var wrapped *domain.StoreError
	if errors.As(err, &wrapped) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}

func normalizeNullable(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
