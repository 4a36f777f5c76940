package httpserver

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/felixge/httpsnoop"
	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"stress-curve/api/internal/logging"
	"stress-curve/api/internal/metrics"
)

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// CORS allows the listed origins; "*" allows any. Preflight requests are
// answered directly with 204.
func CORS(origins []string) Middleware {
	anyOrigin := slices.Contains(origins, "*")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := origin != "" && (anyOrigin || slices.Contains(origins, origin))
			if allowed {
				hdr := w.Header()
				if anyOrigin {
					hdr.Set("Access-Control-Allow-Origin", "*")
				} else {
					hdr.Set("Access-Control-Allow-Origin", origin)
					hdr.Add("Vary", "Origin")
				}
				hdr.Set("Access-Control-Expose-Headers", "X-Curve-Key, X-Request-ID")
			}
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					hdr := w.Header()
					hdr.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
					if rh := r.Header.Get("Access-Control-Request-Headers"); rh != "" {
						hdr.Set("Access-Control-Allow-Headers", rh)
					} else {
						hdr.Set("Access-Control-Allow-Headers", "Content-Type, Accept")
					}
					hdr.Set("Access-Control-Max-Age", "600")
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLog tags each request with an ID (X-Request-ID, generated when
// absent), puts a logger carrying it in the request context, and records
// latency per route pattern.
func RequestLog(log logr.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			rlog := log.WithValues("requestID", id)
			r = r.WithContext(logr.NewContext(r.Context(), rlog))

			m := httpsnoop.CaptureMetrics(next, w, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestDuration.WithLabelValues(route, strconv.Itoa(m.Code)).Observe(m.Duration.Seconds())

			rlog.V(logging.DEBUG).Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"code", m.Code,
				"bytes", m.Written,
				"duration", m.Duration)
		})
	}
}
