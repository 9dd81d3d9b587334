package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thuannguyen2034/food-market-sub000/internal/service"
	"github.com/thuannguyen2034/food-market-sub000/pkg/health"
	"github.com/thuannguyen2034/food-market-sub000/pkg/middleware"
)

// NewRouter creates a chi router with all market service routes registered.
func NewRouter(
	inventoryService *service.InventoryService,
	orderService *service.OrderService,
	cartService *service.CartService,
	addressService *service.AddressService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	pprofAllowedCIDRs []string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware. RequestLogger must come after RequestLogging and
	// Tracing so the request-scoped logger picks up correlation and span ids.
	r.Use(CORS)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("market"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("market"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints, gated by IP allowlist.
	middleware.RegisterPprof(r, pprofAllowedCIDRs, logger)

	inventoryHandler := NewInventoryHandler(inventoryService, logger)
	orderHandler := NewOrderHandler(orderService, logger)
	cartHandler := NewCartHandler(cartService, logger)
	addressHandler := NewAddressHandler(addressService, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Batch lifecycle
		r.Route("/batches", func(r chi.Router) {
			r.Post("/", inventoryHandler.ReceiveBatch)
			r.Get("/{batchId}", inventoryHandler.GetBatch)
			r.Get("/{batchId}/adjustments", inventoryHandler.ListAdjustments)
			r.Post("/{batchId}/adjust", inventoryHandler.AdjustStock)
			r.Post("/{batchId}/destroy", inventoryHandler.DestroyBatch)
		})

		// Stock views and allocation. Availability reads are advisory, so a
		// short client-side cache is fine.
		r.Route("/products/{productId}", func(r chi.Router) {
			r.With(middleware.CacheControl(15)).Get("/stock", inventoryHandler.GetStockAvailability)
			r.With(middleware.CacheControl(15)).Get("/stock/info", inventoryHandler.GetStockInfo)
			r.Get("/batches", inventoryHandler.ListBatches)
		})
		r.Post("/inventory/allocate", inventoryHandler.AllocateStock)

		// Orders
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/", orderHandler.ListOrders)
			r.Get("/{orderId}", orderHandler.GetOrder)
			r.Put("/{orderId}/status", orderHandler.UpdateStatus)
			r.Post("/{orderId}/cancel", orderHandler.Cancel)
		})

		// Carts
		r.Route("/carts/{customerId}", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Post("/items", cartHandler.SetItem)
			r.Delete("/items/{productId}", cartHandler.RemoveItem)
		})

		// Address book
		r.Route("/addresses", func(r chi.Router) {
			r.Post("/", addressHandler.CreateAddress)
			r.Get("/{addressId}", addressHandler.GetAddress)
		})
	})

	return r
}
