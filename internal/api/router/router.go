// Package router assembles the HTTP surface of the platform.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jeevansetu/telehealth-platform/internal/assistant"
	"github.com/jeevansetu/telehealth-platform/internal/cases"
	httpmiddleware "github.com/jeevansetu/telehealth-platform/internal/http/middleware"
	"github.com/jeevansetu/telehealth-platform/internal/realtime"
	"github.com/jeevansetu/telehealth-platform/internal/records"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// Config holds router dependencies. Nil handlers leave their routes
// unmounted so partial deployments and tests stay simple.
type Config struct {
	Logger           *logging.Logger
	CasesHandler     *cases.Handler
	AssistantHandler *assistant.Handler
	RecordsHandler   *records.Handler
	RealtimeHandler  *realtime.Handler
	MetricsHandler   http.Handler

	JWTSecret          string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	// Public endpoints.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API.
	r.Group(func(private chi.Router) {
		private.Use(httpmiddleware.SessionAuth(cfg.JWTSecret))

		if cfg.CasesHandler != nil {
			private.Mount("/cases", cfg.CasesHandler.Routes())
		}
		if cfg.AssistantHandler != nil {
			private.Mount("/assistant", cfg.AssistantHandler.Routes())
		}
		if cfg.RecordsHandler != nil {
			private.Mount("/records", cfg.RecordsHandler.Routes())
		}
		if cfg.RealtimeHandler != nil {
			private.Get("/ws/cases", cfg.RealtimeHandler.ServeWS)
		}
	})

	return r
}
