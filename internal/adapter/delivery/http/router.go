// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the HTTP handlers and related types used for processing
// incoming requests, validating input, and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/vadimbarashkov/shorturls/docs"
)

var defaultAllowedOrigins = []string{"https://*"}

type routerOptions struct {
	baseURL        string
	allowedOrigins []string
}

type RouterOption func(*routerOptions)

// WithBaseURL sets the public base of generated short links.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		o.baseURL = baseURL
	}
}

func WithAllowedOrigins(origins ...string) RouterOption {
	return func(o *routerOptions) {
		if len(origins) > 0 {
			o.allowedOrigins = origins
		}
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, events eventLogger, opts ...RouterOption) *chi.Mux {
	options := routerOptions{allowedOrigins: defaultAllowedOrigins}
	for _, opt := range opts {
		opt(&options)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   options.allowedOrigins,
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer)
	r.Use(requestEvents(events))

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/health", handleHealth)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(docs.Swagger)
	})

	h := newURLHandler(urlUseCase, validator.New(), options.baseURL)

	r.Route("/shorturls", func(r chi.Router) {
		r.Post("/", h.shortenURL)
		r.Get("/", h.listURLs)
		r.Get("/{shortCode}", h.getURLStats)
	})

	r.Get("/{shortCode}", h.redirect)

	return r
}
