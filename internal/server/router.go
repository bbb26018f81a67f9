package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront/internal/httpio"
	"storefront/internal/order/controller"
	"storefront/internal/product"
	"storefront/internal/settings"
)

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

type RouterDeps struct {
	Orders   *controller.OrderController
	Products *product.Controller
	Settings *settings.Controller

	Idempotency    IdempotencyStore
	IdempotencyTTL time.Duration

	Observer HTTPObserver
	Gatherer prometheus.Gatherer

	// Checks run by /healthz, keyed by dependency name.
	Checks map[string]Pinger
}

func NewRouter(deps RouterDeps, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(
		RequestID,
		Recoverer(logger),
		Logging(logger),
	)
	if deps.Observer != nil {
		r.Use(Metrics(deps.Observer))
	}

	r.Get("/healthz", healthHandler(deps.Checks, logger))
	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(Idempotency(deps.Idempotency, deps.IdempotencyTTL, logger)).
			Post("/orders", deps.Orders.CreateOrder)

		r.Route("/stores/{tenantId}", func(r chi.Router) {
			r.Get("/orders", deps.Orders.ListOrders)
			r.Get("/orders/stats", deps.Orders.OrderStats)
			r.Get("/orders/{orderId}", deps.Orders.GetOrder)
			r.Put("/orders/{orderId}", deps.Orders.UpdateOrder)
			r.Delete("/orders/{orderId}", deps.Orders.DeleteOrder)
			r.Post("/quote", deps.Orders.Quote)

			r.Get("/delivery-settings", deps.Settings.HandleGet)
			r.Put("/delivery-settings", deps.Settings.HandleUpdate)

			r.Get("/products", deps.Products.HandleLookupProducts)
			r.Post("/cart/check", deps.Products.HandleCheckCart)
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]Pinger, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check.PingContext(ctx); err != nil {
				logger.Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				resp.Checks[name] = "unavailable"
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httpio.WriteJSON(w, status, resp, logger)
	}
}
