package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"pdv/internal/domain"
	"pdv/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CloseTill archives open sales into a new closed batch. With no ids every
// open sale of the owner is closed. Sales are copied before they are deleted,
// so a failure leaves duplicates rather than losing records. A sale that
// changes while the till is closing fails the close with a ConflictError.
func (s *Service) CloseTill(ctx context.Context, sess domain.Session, saleIDs []string) (domain.TillClosing, error) {
	closing, err := s.closeTill(ctx, sess, saleIDs)
	if err != nil {
		return domain.TillClosing{}, s.fail("close till", sess, err)
	}
	s.logger.Info("till closed",
		zap.String("owner_id", sess.OwnerID),
		zap.String("batch_id", closing.ID),
		zap.Int("sales", closing.SaleCount),
		zap.String("total", closing.Totals.Total.StringFixed(2)),
	)
	return closing, nil
}

func (s *Service) closeTill(ctx context.Context, sess domain.Session, saleIDs []string) (domain.TillClosing, error) {
	if err := requireSession(sess); err != nil {
		return domain.TillClosing{}, err
	}

	now := s.now()
	batchID := uuid.NewString()
	_, transactional := s.store.(store.TxStore)
	var closing domain.TillClosing
	archivedOK := false
	err := s.atomically(ctx, "close till", sess.OwnerID, func(st store.Store, _ *stockLedger) error {
		open, err := st.ListOpenSales(ctx, sess.OwnerID, domain.Period{})
		if err != nil {
			return storeErr("list open sales", err)
		}
		selected, err := selectSales(open, saleIDs)
		if err != nil {
			return err
		}
		if len(selected) == 0 {
			return domain.Invalid("sales", "there are no open sales to close")
		}

		var archived []domain.Sale
		closing, archived = buildClosing(sess.OwnerID, batchID, now, selected)
		if err := st.ArchiveSales(ctx, closing, archived); err != nil {
			return storeErr("archive sales", err)
		}
		archivedOK = true
		// selected carries the revisions that were archived; a sale edited or
		// canceled since fails the delete.
		if err := st.DeleteOpenSales(ctx, sess.OwnerID, selected); err != nil {
			return storeErr("delete closed sales from open set", err)
		}
		return nil
	})
	if err != nil {
		if archivedOK && !transactional {
			return domain.TillClosing{}, s.abandonClosing(ctx, closing, err)
		}
		return domain.TillClosing{}, err
	}
	return closing, nil
}

// abandonClosing handles a failed delete after the archive was written
// without a transaction. A conflict means the archive holds stale copies, so
// it is removed again. Any other failure leaves both copies in place.
func (s *Service) abandonClosing(ctx context.Context, closing domain.TillClosing, cause error) error {
	duplicated := &domain.DuplicatedSalesError{BatchID: closing.ID, SaleIDs: closing.SaleIDs, Err: cause}
	if !errors.Is(cause, domain.ErrConflict) {
		return duplicated
	}
	if err := s.store.DeleteTillClosing(context.WithoutCancel(ctx), closing.OwnerID, closing.ID); err != nil {
		s.logger.Error("stale till closing left archived",
			zap.String("owner_id", closing.OwnerID),
			zap.String("batch_id", closing.ID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return duplicated
	}
	return cause
}

func buildClosing(ownerID, batchID string, now time.Time, selected []domain.Sale) (domain.TillClosing, []domain.Sale) {
	closing := domain.TillClosing{
		ID:        batchID,
		OwnerID:   ownerID,
		StartDate: selected[0].CreatedAt,
		EndDate:   now,
		SaleCount: len(selected),
		Totals:    domain.SummarizeByPayment(selected),
		SaleIDs:   make([]string, 0, len(selected)),
	}
	archived := make([]domain.Sale, 0, len(selected))
	for _, sale := range selected {
		if sale.CreatedAt.Before(closing.StartDate) {
			closing.StartDate = sale.CreatedAt
		}
		closing.SaleIDs = append(closing.SaleIDs, sale.ID)

		copied := sale
		copied.Status = domain.SaleClosed
		copied.BatchID = &batchID
		closedAt := now
		copied.ClosedAt = &closedAt
		archived = append(archived, copied)
	}
	return closing, archived
}

func selectSales(open []domain.Sale, saleIDs []string) ([]domain.Sale, error) {
	if len(saleIDs) == 0 {
		return open, nil
	}
	byID := make(map[string]domain.Sale, len(open))
	for _, sale := range open {
		byID[sale.ID] = sale
	}
	seen := make(map[string]struct{}, len(saleIDs))
	selected := make([]domain.Sale, 0, len(saleIDs))
	for _, raw := range saleIDs {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		sale, ok := byID[id]
		if !ok {
			return nil, &domain.NotFoundError{Entity: "open sale", ID: id}
		}
		selected = append(selected, sale)
	}
	return selected, nil
}
