package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/internal/metrics"
)

type ProductHandlers interface {
	HandleListProducts(w http.ResponseWriter, r *http.Request)
	HandleTopSellers(w http.ResponseWriter, r *http.Request)
}

type OrderHandlers interface {
	PlaceOrder(w http.ResponseWriter, r *http.Request)
	GetOrder(w http.ResponseWriter, r *http.Request)
}

func NewRouter(products ProductHandlers, orders OrderHandlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", products.HandleListProducts)
		r.Get("/products/top-sellers", products.HandleTopSellers)
		r.Post("/orders", orders.PlaceOrder)
		r.Get("/orders/{orderId}", orders.GetOrder)
	})

	logger.Debug("routes registered")
	return r
}
