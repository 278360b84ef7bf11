package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/delivery"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/observability"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/purchasing"
	"github.com/badreddinkaztaoui/logiciel-de-gestion-commercial-sub002/internal/returns"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	PurchasingHandler *purchasing.Handler
	ReturnsHandler    *returns.Handler
	DeliveryHandler   *delivery.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with back office defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		params.PurchasingHandler.MountRoutes(r)
		params.ReturnsHandler.MountRoutes(r)
		params.DeliveryHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
