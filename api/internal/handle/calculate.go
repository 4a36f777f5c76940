package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-logr/logr"

	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/logging"
	"stress-curve/api/internal/metrics"
	"stress-curve/api/internal/store"
)

const maxBodyBytes = 1 << 20

// CalculateRequest is the body of POST /calculate. E, Sy, Et and emax are
// required; numPoints falls back to the configured default when omitted.
type CalculateRequest struct {
	E         *float64 `json:"E"`
	Sy        *float64 `json:"Sy"`
	Et        *float64 `json:"Et"`
	Emax      *float64 `json:"emax"`
	ModelType string   `json:"modelType"`
	NumPoints *int     `json:"numPoints"`
	Mode      string   `json:"mode"`
}

func (req CalculateRequest) Parameters(defaultPoints int) (curve.Parameters, error) {
	for _, f := range []struct {
		name string
		v    *float64
	}{{"E", req.E}, {"Sy", req.Sy}, {"Et", req.Et}, {"emax", req.Emax}} {
		if f.v == nil {
			return curve.Parameters{}, &curve.ParameterError{Field: f.name, Reason: "is required"}
		}
	}
	p := curve.Parameters{
		E:         *req.E,
		Sy:        *req.Sy,
		Et:        *req.Et,
		Emax:      *req.Emax,
		ModelType: req.ModelType,
		NumPoints: defaultPoints,
		Mode:      curve.Mode(req.Mode),
	}
	if req.NumPoints != nil {
		p.NumPoints = *req.NumPoints
	}
	return p, nil
}

func (h *Handle) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	log := h.logger(r)

	var req CalculateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return
	}

	p, err := req.Parameters(h.calc.DefaultPoints())
	if err != nil {
		h.rejectParameter(w, err)
		return
	}
	plan, err := h.calc.Resolve(p)
	if err != nil {
		h.rejectParameter(w, err)
		return
	}
	if !plan.KnownTag {
		metrics.UnknownModelTagsTotal.Inc()
		log.V(logging.DEBUG).Info("Unknown model tag, using default model",
			"modelType", p.ModelType,
			"model", plan.Model.String())
	}

	key := store.Key(plan)
	pts := h.cached(r.Context(), log, key)
	if pts == nil {
		pts = curve.Evaluate(plan)
		h.save(r.Context(), log, key, plan, pts)
	}
	metrics.CalculationsTotal.WithLabelValues(string(plan.Mode), plan.Model.String()).Inc()

	log.V(logging.DEBUG).Info("Computed curve",
		"mode", plan.Mode,
		"model", plan.Model.String(),
		"points", len(pts),
		"key", key)

	if h.cache != nil {
		w.Header().Set("X-Curve-Key", key)
	}
	writeCurve(w, r, pts)
}

func (h *Handle) rejectParameter(w http.ResponseWriter, err error) {
	var pe *curve.ParameterError
	if errors.As(err, &pe) {
		metrics.InvalidParametersTotal.WithLabelValues(pe.Field).Inc()
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

// cached returns the stored curve for key, or nil on a miss, a disabled cache
// or a cache failure. Cache failures never fail the request.
func (h *Handle) cached(ctx context.Context, log logr.Logger, key string) []curve.Point {
	if h.cache == nil {
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheDisabled).Inc()
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, h.cacheTimeout)
	defer cancel()

	pts, err := h.cache.Find(ctx, key, h.cacheMaxAge)
	switch {
	case err == nil && len(pts) > 0:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheHit).Inc()
		return pts
	case err == nil, errors.Is(err, store.ErrNotFound):
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheMiss).Inc()
	default:
		metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheError).Inc()
		log.Error(err, "Curve cache lookup failed", "key", key)
	}
	return nil
}

func (h *Handle) save(ctx context.Context, log logr.Logger, key string, plan curve.Plan, pts []curve.Point) {
	if h.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, h.cacheTimeout)
	defer cancel()
	if err := h.cache.Upsert(ctx, key, plan, pts); err != nil {
		log.Error(err, "Curve cache write failed", "key", key)
	}
}
