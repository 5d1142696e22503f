package http

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestMetrics observes every served request.
type RequestMetrics interface {
	RequestObserved(method, path string, status int, elapsed time.Duration)
}

type Server struct {
	srv *http.Server
}

func New(addr string, api *Handler, exposeMetrics bool, metrics RequestMetrics) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           NewMux(api, exposeMetrics, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// NewMux builds the routing table. api and metrics may be nil.
func NewMux(api *Handler, exposeMetrics bool, metrics RequestMetrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	if exposeMetrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	if api != nil {
		api.register(mux)
	}
	if metrics == nil {
		return mux
	}
	return instrument(mux, metrics)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func instrument(next http.Handler, m RequestMetrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m.RequestObserved(r.Method, path, rec.status, time.Since(start))
	})
}

func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
