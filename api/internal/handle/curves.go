package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/store"
)

// Curve serves GET /v1/curves/{key}: a curve previously returned with an
// X-Curve-Key header. Rows past the cache max age are not served.
func (h *Handle) Curve(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		http.Error(w, "curve cache disabled", http.StatusNotFound)
		return
	}
	key := r.PathValue("key")

	ctx, cancel := context.WithTimeout(r.Context(), h.cacheTimeout)
	defer cancel()

	pts, err := h.cache.Find(ctx, key, h.cacheMaxAge)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "curve not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger(r).Error(err, "Curve cache read failed", "key", key)
		http.Error(w, "cache error", http.StatusBadGateway)
		return
	}
	writeCurve(w, r, pts)
}

type ModelInfo struct {
	Tag        string  `json:"tag"`
	Model      string  `json:"model"`
	Multiplier float64 `json:"multiplier"`
}

type ModelsResponse struct {
	DefaultMode   curve.Mode   `json:"defaultMode"`
	DefaultPoints int          `json:"defaultPoints"`
	MaxPoints     int          `json:"maxPoints,omitempty"`
	Modes         []curve.Mode `json:"modes"`
	Models        []ModelInfo  `json:"models"`
}

func (h *Handle) Models(w http.ResponseWriter, r *http.Request) {
	cat := h.calc.Catalogue()
	out := ModelsResponse{
		DefaultMode:   h.calc.DefaultMode(),
		DefaultPoints: h.calc.DefaultPoints(),
		MaxPoints:     h.calc.MaxPoints(),
		Modes:         []curve.Mode{curve.ModeScaled, curve.ModeBilinear},
	}
	for _, tag := range cat.Tags() {
		m := cat[tag]
		out.Models = append(out.Models, ModelInfo{Tag: tag, Model: m.String(), Multiplier: m.Multiplier()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handle) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if h.cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.cache.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db: not ok\n" + err.Error()))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
