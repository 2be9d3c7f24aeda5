package api

import (
	"net/http"

	"github.com/google/uuid"
	"goa.design/clue/log"
	"golang.org/x/time/rate"
)

// requestID tags each request with an X-Request-Id (honoring one supplied
// by the caller) and binds it to the request log context.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := log.With(r.Context(), log.KV{K: "req_id", V: id})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// rateLimit rejects requests above the configured global rate with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
