package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"pdv/internal/domain"
	"pdv/internal/store"
)

// plannedDelta is a net stock change for one tracked product, checked
// against the stock read just before the write.
type plannedDelta struct {
	product domain.Product
	delta   int
}

// netDeltas returns the per-product stock change that turns oldItems into
// newItems: oldQty - newQty. Loose lines never appear.
func netDeltas(oldItems, newItems []domain.LineItem) map[string]int {
	oldQty := domain.CatalogQuantities(oldItems)
	newQty := domain.CatalogQuantities(newItems)

	result := make(map[string]int)
	for _, productID := range collectKeys(oldQty, newQty) {
		if delta := oldQty[productID] - newQty[productID]; delta != 0 {
			result[productID] = delta
		}
	}
	return result
}

func collectKeys(a, b map[string]int) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for key := range a {
		set[key] = struct{}{}
	}
	for key := range b {
		set[key] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// planStock re-reads every product touched by deltas and rejects the whole
// plan when a consumption exceeds the stock on hand. Products are visited in
// id order so concurrent transactions lock rows in the same order.
func planStock(ctx context.Context, st store.Store, ownerID string, deltas map[string]int) ([]plannedDelta, error) {
	ids := make([]string, 0, len(deltas))
	for id, delta := range deltas {
		if delta != 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	plan := make([]plannedDelta, 0, len(ids))
	for _, id := range ids {
		product, err := st.GetProduct(ctx, ownerID, id)
		if err != nil {
			return nil, storeErr("load product", err)
		}
		if !product.Tracked() {
			continue
		}
		delta := deltas[id]
		if delta < 0 && product.Available()+delta < 0 {
			return nil, &domain.InsufficientStockError{
				ProductID: product.ID,
				Name:      product.Name,
				Requested: -delta,
				Available: product.Available(),
			}
		}
		plan = append(plan, plannedDelta{product: product, delta: delta})
	}
	return plan, nil
}

// stockLedger applies guarded stock adjustments and remembers them so they
// can be reverted in reverse order.
type stockLedger struct {
	store   store.Store
	ownerID string
	applied []domain.StockDelta
}

func newStockLedger(st store.Store, ownerID string) *stockLedger {
	return &stockLedger{store: st, ownerID: ownerID}
}

func (l *stockLedger) applyPlan(ctx context.Context, plan []plannedDelta) error {
	for _, step := range plan {
		if err := l.apply(ctx, step.product, step.delta); err != nil {
			return err
		}
	}
	return nil
}

func (l *stockLedger) apply(ctx context.Context, product domain.Product, delta int) error {
	stock, err := l.store.AdjustStock(ctx, l.ownerID, product.ID, delta)
	if err != nil {
		if errors.Is(err, store.ErrStockConflict) {
			return l.staleRead(ctx, product, delta)
		}
		return storeErr(fmt.Sprintf("adjust stock of %s", product.ID), err)
	}
	if stock == nil {
		// the product stopped tracking stock between read and write
		return nil
	}
	l.applied = append(l.applied, domain.StockDelta{ProductID: product.ID, Delta: delta})
	return nil
}

func (l *stockLedger) staleRead(ctx context.Context, product domain.Product, delta int) error {
	available := 0
	if current, err := l.store.GetProduct(ctx, l.ownerID, product.ID); err == nil {
		available = current.Available()
	}
	return &domain.StaleReadError{
		ProductID: product.ID,
		Name:      product.Name,
		Requested: -delta,
		Available: available,
	}
}

// revert undoes applied deltas newest first. On failure it returns the deltas
// that are still applied.
func (l *stockLedger) revert(ctx context.Context) ([]domain.StockDelta, error) {
	for i := len(l.applied) - 1; i >= 0; i-- {
		step := l.applied[i]
		if _, err := l.store.AdjustStock(ctx, l.ownerID, step.ProductID, -step.Delta); err != nil {
			remaining := append([]domain.StockDelta(nil), l.applied[:i+1]...)
			return remaining, fmt.Errorf("revert stock of %s by %d: %w", step.ProductID, -step.Delta, err)
		}
	}
	l.applied = nil
	return nil, nil
}
