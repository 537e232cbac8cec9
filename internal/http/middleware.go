package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// recordMetrics counts requests and observes latency per chi route
// pattern, so path parameters do not explode label cardinality.
func (s *Server) recordMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		if s.m != nil {
			s.m.HTTPRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
			s.m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}
