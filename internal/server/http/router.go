package http

import (
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
)

// RouterOptions configures the shared HTTP stack.
type RouterOptions struct {
	Title              string
	Version            string
	CORSOrigins        []string
	RateLimitPerMinute int
}

// NewRouter builds the chi router with middleware and the huma API on top.
func NewRouter(opts RouterOptions) (chi.Router, huma.API) {
	r := chi.NewMux()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	if opts.RateLimitPerMinute > 0 {
		r.Use(httprate.Limit(opts.RateLimitPerMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				writeJSONError(w, NewAPIError(http.StatusTooManyRequests, "Too many requests"))
			}),
		))
	}

	cfg := huma.DefaultConfig(opts.Title, opts.Version)
	// Plain JSON bodies, no $schema links.
	cfg.CreateHooks = nil
	cfg.Transformers = nil

	api := humachi.New(r, cfg)
	return r, api
}
