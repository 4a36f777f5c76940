package handle

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"stress-curve/api/internal/curve"
)

// CurveCache stores computed curves by plan key. *store.CurveRepo implements it.
type CurveCache interface {
	Find(ctx context.Context, key string, maxAge time.Duration) ([]curve.Point, error)
	Upsert(ctx context.Context, key string, plan curve.Plan, pts []curve.Point) error
	Ping(ctx context.Context) error
}

type Handle struct {
	calc         *curve.Calculator
	cache        CurveCache
	cacheMaxAge  time.Duration
	cacheTimeout time.Duration
	log          logr.Logger
}

type Option func(*Handle)

// WithCache enables the curve cache. maxAge 0 never expires entries.
func WithCache(c CurveCache, maxAge, timeout time.Duration) Option {
	return func(h *Handle) {
		h.cache = c
		h.cacheMaxAge = maxAge
		if timeout > 0 {
			h.cacheTimeout = timeout
		}
	}
}

func WithLogger(l logr.Logger) Option {
	return func(h *Handle) { h.log = l }
}

func New(calc *curve.Calculator, opts ...Option) *Handle {
	h := &Handle{
		calc:         calc,
		cacheTimeout: 2 * time.Second,
		log:          logr.Discard(),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handle) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/calculate", h.Calculate)
	mux.HandleFunc("GET /v1/models", h.Models)
	mux.HandleFunc("GET /v1/curves/{key}", h.Curve)
	mux.HandleFunc("GET /healthz", h.Healthz)
}

func (h *Handle) logger(r *http.Request) logr.Logger {
	if l, err := logr.FromContext(r.Context()); err == nil {
		return l
	}
	return h.log
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// wantsCSV honours ?format=csv and an Accept header asking for text/csv.
func wantsCSV(r *http.Request) bool {
	if f := r.URL.Query().Get("format"); f != "" {
		return strings.EqualFold(f, "csv")
	}
	return strings.Contains(r.Header.Get("Accept"), "text/csv")
}

func writeCurve(w http.ResponseWriter, r *http.Request, pts []curve.Point) {
	if !wantsCSV(r) {
		writeJSON(w, http.StatusOK, pts)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stress_strain.csv"`)
	w.WriteHeader(http.StatusOK)
	_ = curve.WriteCSV(w, pts)
}
