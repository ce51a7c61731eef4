package http

import (
	"errors"
	"net/http"

	"pdv/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// writeServiceError maps a typed service error to a status code and a
// {"error", "details"} body. Anything untyped is a 500 with a generic message.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		stock      *domain.InsufficientStockError
		stale      *domain.StaleReadError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		partial    *domain.PartialStockError
		duplicated *domain.DuplicatedSalesError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   validation.Error(),
			"details": map[string]any{"field": validation.Field, "reason": validation.Reason},
		})
	case errors.As(err, &stock):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   stock.Error(),
			"details": stockDetails(stock.ProductID, stock.Name, stock.Requested, stock.Available),
		})
	case errors.As(err, &stale):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   stale.Error(),
			"details": stockDetails(stale.ProductID, stale.Name, stale.Requested, stale.Available),
		})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   notFound.Error(),
			"details": map[string]any{"entity": notFound.Entity, "id": notFound.ID},
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   conflict.Error(),
			"details": map[string]any{"entity": conflict.Entity, "id": conflict.ID, "reason": conflict.Reason},
		})
	case errors.As(err, &partial):
		h.logFailure(r, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "operation failed and stock could not be fully restored",
			"details": map[string]any{"operation": partial.Op, "applied": partial.Applied},
		})
	case errors.As(err, &duplicated):
		h.logFailure(r, err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "sales were archived but are still open",
			"details": map[string]any{"batch_id": duplicated.BatchID, "sale_ids": duplicated.SaleIDs},
		})
	default:
		h.logFailure(r, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) logFailure(r *http.Request, err error) {
	h.logger.Error("request failed",
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
}

func stockDetails(productID, name string, requested, available int) map[string]any {
	return map[string]any{
		"product_id": productID,
		"name":       name,
		"requested":  requested,
		"available":  available,
	}
}
