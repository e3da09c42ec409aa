package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ukodus-galaxy/application/store"
	"ukodus-galaxy/interfaces/http/rest/handlers"
	"ukodus-galaxy/interfaces/http/rest/middleware"
	"ukodus-galaxy/pkg/common"
)

// Router creates and configures the HTTP router
type Router struct {
	store      *store.GraphStore
	registry   *prometheus.Registry
	logger     *zap.Logger
	enableCORS bool
}

// NewRouter creates a new router instance
func NewRouter(st *store.GraphStore, registry *prometheus.Registry, logger *zap.Logger, enableCORS bool) *Router {
	return &Router{
		store:      st,
		registry:   registry,
		logger:     logger,
		enableCORS: enableCORS,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	if rt.registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(rt.registry, promhttp.HandlerOpts{}))
	}

	// Read-only galaxy views
	router.Route("/api/v1/galaxy", func(r chi.Router) {
		galaxyHandler := handlers.NewGalaxyHandler(rt.store, rt.logger)
		r.Get("/overview", galaxyHandler.GetOverview)
		r.Get("/stats", galaxyHandler.GetStats)
		r.Get("/hulls", galaxyHandler.GetHulls)
		r.Get("/families", galaxyHandler.GetFamilies)
		r.Get("/cluster/{family}", galaxyHandler.GetCluster)
		r.Get("/techniques", galaxyHandler.GetTechniques)
		r.Get("/techniques/{name}/puzzles", galaxyHandler.GetTechniquePuzzles)
		r.Get("/neighbors/{hash}", galaxyHandler.GetNeighbors)
		r.Get("/recent", galaxyHandler.GetRecent)
	})

	return router
}

// healthCheck reports liveness and the store's loading state.
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"loading": rt.store.Loading(),
	})
}
