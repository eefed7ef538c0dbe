package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	RouteClassify = "/api/ml/classifier"
	RouteHealth   = "/health"
	RouteReady    = "/ready"
	RouteMetrics  = "/metrics"
)

// RequestRecorder counts served requests.
type RequestRecorder interface {
	RequestServed(route string, code int)
}

// RouterOptions wire optional endpoints and instrumentation.
type RouterOptions struct {
	Metrics  http.Handler
	Recorder RequestRecorder
}

// NewRouter registers every route on a fresh mux and wraps it in the
// recovery, request logging and CORS middleware.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(RouteHealth, h.Health)
	mux.HandleFunc(RouteReady, h.Ready)
	mux.HandleFunc(RouteClassify, h.Classify)
	if opts.Metrics != nil {
		mux.Handle(RouteMetrics, opts.Metrics)
	}

	return h.recoverPanics(logRequests(opts.Recorder, enableCORS(mux)))
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	return sw.ResponseWriter.Write(b)
}

func routeLabel(path string) string {
	switch path {
	case RouteClassify, RouteHealth, RouteReady, RouteMetrics:
		return path
	default:
		return "other"
	}
}

func logRequests(rec RequestRecorder, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		if sw.status == 0 {
			sw.status = http.StatusOK
		}

		if rec != nil {
			rec.RequestServed(routeLabel(r.URL.Path), sw.status)
		}
		log.Info().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}

func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				log.Error().Interface("panic", v).Str("path", r.URL.Path).Msg("handler panicked")
				h.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
