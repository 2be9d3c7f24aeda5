// Package api maps the HTTP surface onto the document operations. The
// mapping is mechanical: URL and query parameters select the operation,
// bodies and results are JSON, and every failure is a 400 carrying the
// error envelope.
package api

import (
	"net/http"

	"github.com/vitalvas/kasper/mux"
	"goa.design/clue/debug"
	"goa.design/clue/health"
	"golang.org/x/time/rate"

	"github.com/beamlab/dms/docs"
)

// Server holds the HTTP handler state.
type Server struct {
	svc   *docs.Service
	debug bool
	limit *rate.Limiter
}

// Option configures a Server.
type Option func(*Server)

// WithDebug enables traceback reporting in error envelopes and mounts the
// pprof and debug-log endpoints.
func WithDebug() Option {
	return func(s *Server) { s.debug = true }
}

// WithRateLimit caps the request rate across all clients.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(s *Server) { s.limit = rate.NewLimiter(limit, burst) }
}

// New builds the HTTP handler. dep is pinged by the /healthz endpoint;
// pass the store.
func New(svc *docs.Service, dep health.Pinger, opts ...Option) http.Handler {
	s := &Server{svc: svc}
	for _, o := range opts {
		o(s)
	}

	r := mux.NewRouter()

	// Fixed routes before templated ones; the router matches in
	// registration order.
	r.HandleFunc("/", s.ok).Methods(http.MethodGet)
	r.Handle("/healthz", health.Handler(health.NewChecker(dep))).Methods(http.MethodGet)
	if s.debug {
		debug.MountPprofHandlers(muxAdapter{r})
		debug.MountDebugLogEnabler(muxAdapter{r})
	}

	r.HandleFunc("/{db}/schema", s.postSchema).Methods(http.MethodPost)
	r.HandleFunc("/{db}/schema", s.getSchema).Methods(http.MethodGet)
	r.HandleFunc("/{db}", s.listTypes).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}", s.listIDs).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}", s.post).Methods(http.MethodPost)
	r.HandleFunc("/{db}/{type}/{id}/clone", s.clone).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}/{id}/safe-links", s.safeLinks).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}/{id}/graph", s.graph).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}/{id}", s.get).Methods(http.MethodGet)
	r.HandleFunc("/{db}/{type}/{id}", s.patch).Methods(http.MethodPatch)

	r.Use(requestID)
	if s.limit != nil {
		r.Use(rateLimit(s.limit))
	}

	var h http.Handler = r
	if s.debug {
		h = debug.HTTP()(h)
	}
	return h
}

// muxAdapter lets the clue debug mounts register on the router; the
// router's HandleFunc returns the route and therefore does not satisfy
// the debug.Muxer interface directly.
type muxAdapter struct{ r *mux.Router }

func (a muxAdapter) Handle(pattern string, h http.Handler) {
	a.r.Handle(pattern, h)
}

func (a muxAdapter) HandleFunc(pattern string, h func(http.ResponseWriter, *http.Request)) {
	a.r.HandleFunc(pattern, h)
}
