package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pdv/internal/auth"
	"pdv/internal/domain"
	"pdv/internal/excel"
	"pdv/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Handler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewHandler(svc *service.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, err := parseOptionalInt(query.Get("limit"), 200)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	offset, err := parseOptionalInt(query.Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := h.svc.ListProducts(r.Context(), session(r), query.Get("search"), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.GetProduct(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) ImportCatalogExcel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	rows, err := excel.ParseCatalogRows(header.Filename, file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, updated, err := h.svc.ImportCatalog(r.Context(), session(r), rows)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"file_name":  header.Filename,
		"total_rows": len(rows),
		"created":    created,
		"updated":    updated,
	})
}

func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.CreateCart(session(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetCart(session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCart(session(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	view, err := h.svc.AddCartItem(r.Context(), session(r), chi.URLParam(r, "id"), req.ProductID, quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type addLooseItemRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity *int            `json:"quantity"`
}

func (h *Handler) AddLooseCartItem(w http.ResponseWriter, r *http.Request) {
	var req addLooseItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}
	view, err := h.svc.AddLooseCartItem(session(r), chi.URLParam(r, "id"), req.Name, req.Price, quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) SetCartItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req setQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.SetCartItemQuantity(r.Context(), session(r), chi.URLParam(r, "id"), chi.URLParam(r, "key"), req.Quantity)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.RemoveCartItem(session(r), chi.URLParam(r, "id"), chi.URLParam(r, "key"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) SetCartDiscount(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleDiscount
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := h.svc.SetCartDiscount(session(r), chi.URLParam(r, "id"), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// paymentRequest is shared by checkout and sale edit.
type paymentRequest struct {
	PaymentMethod domain.PaymentMethod `json:"payment_method"`
	EmployeeID    string               `json:"employee_id"`
	CustomerID    *string              `json:"customer_id"`
	DueDate       string               `json:"due_date"`
	CashReceived  *decimal.Decimal     `json:"cash_received"`
	Installments  int                  `json:"installments"`
	InterestRate  decimal.Decimal      `json:"interest_rate"`
}

type checkoutRequest struct {
	paymentRequest
	Discount *domain.SaleDiscount `json:"discount"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dueDate, err := parseOptionalTime(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due_date")
		return
	}
	sale, err := h.svc.Checkout(r.Context(), session(r), chi.URLParam(r, "id"), service.CheckoutInput{
		PaymentMethod: req.PaymentMethod,
		Discount:      req.Discount,
		EmployeeID:    req.EmployeeID,
		CustomerID:    req.CustomerID,
		DueDate:       dueDate,
		CashReceived:  req.CashReceived,
		Installments:  req.Installments,
		InterestRate:  req.InterestRate,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	sales, err := h.svc.ListOpenSales(r.Context(), session(r), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sales, "count": len(sales)})
}

func (h *Handler) SalesSummary(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	summary, err := h.svc.SalesSummary(r.Context(), session(r), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.svc.GetSale(r.Context(), session(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

type editSaleRequest struct {
	paymentRequest
	Items    []domain.LineItem   `json:"items"`
	Discount domain.SaleDiscount `json:"discount"`
	Date     string              `json:"date"`
}

func (h *Handler) EditSale(w http.ResponseWriter, r *http.Request) {
	var req editSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	date, err := parseOptionalTime(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	dueDate, err := parseOptionalTime(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due_date")
		return
	}
	sale, err := h.svc.EditSale(r.Context(), session(r), chi.URLParam(r, "id"), service.EditInput{
		Items:         req.Items,
		Discount:      req.Discount,
		PaymentMethod: req.PaymentMethod,
		Date:          date,
		EmployeeID:    req.EmployeeID,
		CustomerID:    req.CustomerID,
		DueDate:       dueDate,
		CashReceived:  req.CashReceived,
		Installments:  req.Installments,
		InterestRate:  req.InterestRate,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) CancelSale(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CancelSale(r.Context(), session(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type closeTillRequest struct {
	SaleIDs []string `json:"sale_ids"`
}

func (h *Handler) CloseTill(w http.ResponseWriter, r *http.Request) {
	var req closeTillRequest
	// An empty body closes every open sale.
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	closing, err := h.svc.CloseTill(r.Context(), session(r), req.SaleIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, closing)
}

func (h *Handler) ListTillClosings(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	closings, err := h.svc.ListTillClosings(r.Context(), session(r), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": closings, "count": len(closings)})
}

func (h *Handler) ListClosedSales(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	sales, err := h.svc.ListClosedSales(r.Context(), session(r), r.URL.Query().Get("batch_id"), period)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": sales, "count": len(sales)})
}

func session(r *http.Request) domain.Session {
	sess, _ := auth.SessionFrom(r.Context())
	return sess
}

var errEmptyBody = errors.New("request body is empty")

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func parseOptionalInt(raw string, defaultValue int) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid integer: %s", raw)
	}
	if parsed < 0 {
		return 0, fmt.Errorf("value cannot be negative")
	}
	return parsed, nil
}

func parseOptionalTime(raw string) (*time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			if layout == "2006-01-02" {
				utc := parsed.UTC()
				return &utc, nil
			}
			return &parsed, nil
		}
	}
	return nil, fmt.Errorf("invalid time")
}

// parsePeriod reads the optional from and to query parameters. A date-only to
// covers the whole day.
func parsePeriod(r *http.Request) (domain.Period, error) {
	query := r.URL.Query()
	from, err := parseOptionalTime(query.Get("from"))
	if err != nil {
		return domain.Period{}, domain.Invalid("from", "must be RFC3339 or YYYY-MM-DD")
	}
	rawTo := strings.TrimSpace(query.Get("to"))
	to, err := parseOptionalTime(rawTo)
	if err != nil {
		return domain.Period{}, domain.Invalid("to", "must be RFC3339 or YYYY-MM-DD")
	}
	if to != nil && len(rawTo) == len("2006-01-02") {
		end := to.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}
	return domain.Period{From: from, To: to}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
