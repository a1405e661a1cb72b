package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bobibobi02/whistle-connect-sub001/internal/api/handler"
	apimw "github.com/bobibobi02/whistle-connect-sub001/internal/api/middleware"
	"github.com/bobibobi02/whistle-connect-sub001/internal/service"
	"github.com/bobibobi02/whistle-connect-sub001/internal/worker"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	svc *service.EnqueueService,
	sched *worker.Scheduler,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)          // recover panics, return 500
	r.Use(chimw.RealIP)             // trust X-Forwarded-For / X-Real-IP
	r.Use(chimw.RequestSize(1<<20)) // 1 MB max request body
	r.Use(apimw.CorrelationID)      // X-Correlation-ID inject / echo
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(svc, logger)
	rh := handler.NewRunHandler(sched, logger)
	hh := handler.NewHealthHandler()

	// --- routes ---
	r.Get("/health", hh.Health)

	// Raw Prometheus scrape endpoint (for Prometheus server / Grafana)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		// Producer write surface: insert one pending row.
		r.Post("/notifications", nh.Enqueue)
		r.Get("/notifications/{id}", nh.GetByID)

		// Delivery runs — /runs/latest before /runs POST keeps chi routing
		// unambiguous between the literal path and the collection.
		r.Post("/runs", rh.Trigger)
		r.Get("/runs/latest", rh.Latest)
	})

	return r
}
