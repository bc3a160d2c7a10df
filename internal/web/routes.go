package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/photo-moments/internal/web/handlers"
)

func (s *Server) setupRoutes(runner handlers.ClusterRunner, store Store) {
	// Interface values wrapping a nil pointer still count as non-nil; only
	// pass through a store that was actually configured.
	var runStore handlers.RunStore
	var clusterStore handlers.ClusterStore
	if store != nil {
		runStore = store
		clusterStore = store
	}

	runsHandler := handlers.NewRunsHandler(runner, runStore, s.jobManager)
	clustersHandler := handlers.NewClustersHandler(clusterStore)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Runs (long-running operations)
		r.Post("/runs", runsHandler.Start)
		r.Get("/runs", runsHandler.List)
		r.Get("/runs/{jobId}", runsHandler.Status)
		r.Get("/runs/{jobId}/events", runsHandler.Events)
		r.Delete("/runs/{jobId}", runsHandler.Cancel)

		// Clusters (read-only, persisted results)
		r.Get("/clusters", clustersHandler.List)
		r.Get("/clusters/{id}", clustersHandler.Get)
	})

	s.router.Get("/", s.serveIndex)
}

// serveIndex serves a minimal landing page pointing at the API.
func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>Photo Moments</title>
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; }
        h1 { color: #00d9ff; }
        p { color: #aaa; }
        a { color: #00d9ff; }
        code { background: #2a2a3e; padding: 2px 8px; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Photo Moments</h1>
        <p>Start a clustering run with <code>POST /api/v1/runs</code>.</p>
        <p>API is available at <a href="/api/v1/health">/api/v1/health</a></p>
    </div>
</body>
</html>`))
}
