package main

import (
	"context"
	"net/http"
	"time"

	"github.com/FACorreiaa/smart-balance-sheet/pkg/middleware"
)

// NewRouter mounts every handler and wraps the mux in the middleware chain.
func NewRouter(d *Dependencies) http.Handler {
	mux := http.NewServeMux()

	d.ClientHandler.Register(mux)
	d.ImportHandler.Register(mux)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if d.DB != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.DB.Pool.Ping(ctx); err != nil {
				status, code = "database unavailable", http.StatusServiceUnavailable
			}
		}
		middleware.WriteJSON(w, code, map[string]string{
			"status": status,
			"store":  string(d.Config.Database.Store),
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	var handler http.Handler = mux
	if d.HTTPMetrics != nil {
		mux.Handle("GET /metrics", d.HTTPMetrics.Handler())
		// innermost so the matched pattern is visible after the mux runs
		handler = d.HTTPMetrics.Middleware(mux)
	}

	limiter := middleware.NewRateLimiter(float64(d.Config.Server.RateLimitPerSecond), d.Config.Server.RateLimitBurst)

	return middleware.Chain(handler,
		middleware.Recovery(d.Logger),
		middleware.RequestID,
		middleware.Logger(d.Logger),
		middleware.CORS(d.Config.Server.AllowedOrigins),
		limiter.Middleware,
	)
}
