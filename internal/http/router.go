package http

import (
	"net/http"
	"time"

	"pdv/internal/auth"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type RouterOptions struct {
	Logger         *zap.Logger
	RequestTimeout time.Duration
}

func NewRouter(handler *Handler, verifier *auth.Verifier, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(Timeout(timeout))
	r.Use(CORS)

	r.Get("/healthz", handler.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RequireSession(verifier))

		r.Get("/products", handler.ListProducts)
		r.Get("/products/{id}", handler.GetProduct)
		r.Post("/products/import-excel", handler.ImportCatalogExcel)

		r.Post("/carts", handler.CreateCart)
		r.Get("/carts/{id}", handler.GetCart)
		r.Delete("/carts/{id}", handler.DeleteCart)
		r.Post("/carts/{id}/items", handler.AddCartItem)
		r.Post("/carts/{id}/loose-items", handler.AddLooseCartItem)
		r.Patch("/carts/{id}/items/{key}", handler.SetCartItemQuantity)
		r.Delete("/carts/{id}/items/{key}", handler.RemoveCartItem)
		r.Put("/carts/{id}/discount", handler.SetCartDiscount)
		r.Post("/carts/{id}/checkout", handler.Checkout)

		r.Get("/sales", handler.ListSales)
		r.Get("/sales/summary", handler.SalesSummary)
		r.Get("/sales/{id}", handler.GetSale)
		r.Put("/sales/{id}", handler.EditSale)
		r.Delete("/sales/{id}", handler.CancelSale)

		r.Post("/till/close", handler.CloseTill)
		r.Get("/till/closings", handler.ListTillClosings)
		r.Get("/closed-sales", handler.ListClosedSales)
	})

	return r
}
