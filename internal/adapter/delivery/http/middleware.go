package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/render"
	"github.com/vadimbarashkov/shorturls/internal/telemetry"
)

type eventLogger interface {
	Info(ctx context.Context, pkg, msg string, meta map[string]any)
}

// requestEvents reports every incoming request to the telemetry collector.
func requestEvents(events eventLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			events.Info(r.Context(), telemetry.PackageHandler, r.Method+" "+r.URL.Path, map[string]any{
				"method":    r.Method,
				"path":      r.URL.Path,
				"query":     r.URL.RawQuery,
				"userAgent": r.UserAgent(),
				"ip":        r.RemoteAddr,
			})

			next.ServeHTTP(w, r)
		})
	}
}

// recoverer turns a handler panic into a JSON server error.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}

				httplog.LogEntrySetField(r.Context(), "panic", slog.AnyValue(rvr))

				render.Status(r, http.StatusInternalServerError)
				render.JSON(w, r, serverErrorResponse)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
