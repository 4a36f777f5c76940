package handle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"stress-curve/api/internal/curve"
	"stress-curve/api/internal/logging"
	"stress-curve/api/internal/store"
)

type fakeCache struct {
	mu      sync.Mutex
	rows    map[string][]curve.Point
	finds   int
	upserts int
	findErr error
	pingErr error
	maxAges []time.Duration
}

func newFakeCache() *fakeCache {
	return &fakeCache{rows: map[string][]curve.Point{}}
}

func (f *fakeCache) Find(_ context.Context, key string, maxAge time.Duration) ([]curve.Point, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finds++
	f.maxAges = append(f.maxAges, maxAge)
	if f.findErr != nil {
		return nil, f.findErr
	}
	pts, ok := f.rows[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return pts, nil
}

func (f *fakeCache) Upsert(_ context.Context, key string, _ curve.Plan, pts []curve.Point) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	f.rows[key] = pts
	return nil
}

func (f *fakeCache) Ping(context.Context) error { return f.pingErr }

func serve(h *Handle, method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return serveRequest(h, req)
}

func serveRequest(h *Handle, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Routes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodePoints(rec *httptest.ResponseRecorder) []curve.Point {
	var pts []curve.Point
	ExpectWithOffset(1, json.Unmarshal(rec.Body.Bytes(), &pts)).To(Succeed())
	return pts
}

const steelBody = `{"E":200000,"Sy":250,"Et":1000,"emax":0.01,"modelType":"%s","numPoints":3}`

func steel(model string) string {
	return strings.Replace(steelBody, "%s", model, 1)
}

var _ = Describe("Calculate", func() {
	var h *Handle

	BeforeEach(func() {
		h = New(curve.New(curve.Options{}), WithLogger(logging.NewTestLogger()))
	})

	It("should return the scaled Nelson curve", func() {
		rec := serve(h, http.MethodPost, "/calculate", steel("Nelson"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
		Expect(decodePoints(rec)).To(Equal([]curve.Point{
			{Strain: 0, Stress: 0},
			{Strain: 0.005, Stress: 1000},
			{Strain: 0.01, Stress: 2000},
		}))
	})

	It("should scale by 0.8 for Fracture fit", func() {
		rec := serve(h, http.MethodPost, "/calculate", steel("Fracture fit"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		pts := decodePoints(rec)
		Expect(pts).To(HaveLen(3))
		Expect(pts[1].Stress).To(Equal(800.0))
		Expect(pts[2].Stress).To(Equal(1600.0))
	})

	It("should fall back to the full modulus for unknown tags", func() {
		rec := serve(h, http.MethodPost, "/calculate", steel("Voce"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodePoints(rec)[2].Stress).To(Equal(2000.0))
	})

	It("should floor numPoints at two", func() {
		rec := serve(h, http.MethodPost, "/calculate", `{"E":200000,"Sy":250,"Et":1000,"emax":0.01,"modelType":"Nelson","numPoints":0}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodePoints(rec)).To(HaveLen(2))
	})

	It("should use the configured point count when numPoints is omitted", func() {
		h = New(curve.New(curve.Options{Points: 11}))
		rec := serve(h, http.MethodPost, "/calculate", `{"E":200000,"Sy":250,"Et":1000,"emax":0.01}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodePoints(rec)).To(HaveLen(11))
	})

	It("should compute the bilinear curve when asked", func() {
		rec := serve(h, http.MethodPost, "/calculate", `{"E":200000,"Sy":250,"Et":1000,"emax":0.01,"mode":"bilinear"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		pts := decodePoints(rec)
		Expect(pts).To(HaveLen(100))
		Expect(pts[0]).To(Equal(curve.Point{}))
		Expect(pts[99]).To(Equal(curve.Point{Strain: 0.01, Stress: 258.75}))
	})

	It("should return CSV when asked", func() {
		rec := serve(h, http.MethodPost, "/calculate?format=csv", steel("Nelson"))
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(HavePrefix("text/csv"))
		Expect(rec.Body.String()).To(Equal("Strain,Stress\n0,0\n0.005,1000\n0.01,2000\n"))

		rec = serve(h, http.MethodPost, "/calculate", steel("Nelson"), "Accept", "text/csv")
		Expect(rec.Body.String()).To(HavePrefix("Strain,Stress\n"))
	})

	DescribeTable("should reject bad requests",
		func(method, body string, code int, msg string) {
			rec := serve(h, method, "/calculate", body)
			Expect(rec.Code).To(Equal(code))
			Expect(rec.Body.String()).To(ContainSubstring(msg))
		},
		Entry("wrong method", http.MethodGet, "", http.StatusMethodNotAllowed, "POST only"),
		Entry("malformed json", http.MethodPost, `{"E":`, http.StatusBadRequest, "bad json"),
		Entry("non-numeric field", http.MethodPost, `{"E":"steel","Sy":250,"Et":1000,"emax":0.01}`, http.StatusBadRequest, "bad json"),
		Entry("missing E", http.MethodPost, `{"Sy":250,"Et":1000,"emax":0.01}`, http.StatusBadRequest, "invalid parameter E: is required"),
		Entry("missing emax", http.MethodPost, `{"E":1,"Sy":250,"Et":1000}`, http.StatusBadRequest, "invalid parameter emax"),
		Entry("bilinear zero modulus", http.MethodPost, `{"E":0,"Sy":250,"Et":1000,"emax":0.01,"mode":"bilinear"}`, http.StatusBadRequest, "invalid parameter E"),
		Entry("negative emax", http.MethodPost, `{"E":1,"Sy":250,"Et":1000,"emax":-1}`, http.StatusBadRequest, "invalid parameter emax"),
		Entry("unknown mode", http.MethodPost, `{"E":1,"Sy":250,"Et":1000,"emax":1,"mode":"plastic"}`, http.StatusBadRequest, "invalid parameter mode"),
	)

	Context("with a cache", func() {
		var cache *fakeCache

		BeforeEach(func() {
			cache = newFakeCache()
			h = New(curve.New(curve.Options{}), WithCache(cache, time.Hour, time.Second))
		})

		It("should store the curve and expose its key", func() {
			rec := serve(h, http.MethodPost, "/calculate", steel("Nelson"))
			Expect(rec.Code).To(Equal(http.StatusOK))
			key := rec.Header().Get("X-Curve-Key")
			Expect(key).To(HaveLen(64))
			Expect(cache.upserts).To(Equal(1))

			rec = serve(h, http.MethodGet, "/v1/curves/"+key, "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodePoints(rec)).To(HaveLen(3))
		})

		It("should serve a hit without writing again", func() {
			serve(h, http.MethodPost, "/calculate", steel("Nelson"))
			rec := serve(h, http.MethodPost, "/calculate", steel("Option 1"))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(cache.finds).To(Equal(2))
			Expect(cache.upserts).To(Equal(1), "Nelson and Option 1 resolve to the same plan")
		})

		It("should still answer when the cache fails", func() {
			cache.findErr = errors.New("connection refused")
			rec := serve(h, http.MethodPost, "/calculate", steel("Considere"))
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(decodePoints(rec)[2].Stress).To(Equal(1000.0))
		})

		It("should log cache failures with the request logger", func() {
			var lines []string
			log := funcr.New(func(_, args string) { lines = append(lines, args) }, funcr.Options{}).
				WithValues("requestID", "req-42")
			cache.findErr = errors.New("connection refused")

			req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(steel("Nelson")))
			req = req.WithContext(logr.NewContext(req.Context(), log))
			Expect(serveRequest(h, req).Code).To(Equal(http.StatusOK))
			Expect(lines).To(ContainElement(And(
				ContainSubstring("Curve cache lookup failed"),
				ContainSubstring(`"requestID"="req-42"`),
			)))
		})

		It("should apply the max age to curve lookups", func() {
			serve(h, http.MethodGet, "/v1/curves/deadbeef", "")
			Expect(cache.maxAges).To(Equal([]time.Duration{time.Hour}))
		})

		It("should 404 unknown keys", func() {
			rec := serve(h, http.MethodGet, "/v1/curves/deadbeef", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should report the database in healthz", func() {
			Expect(serve(h, http.MethodGet, "/healthz", "").Code).To(Equal(http.StatusOK))
			cache.pingErr = errors.New("down")
			rec := serve(h, http.MethodGet, "/healthz", "")
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
			Expect(rec.Body.String()).To(ContainSubstring("down"))
		})
	})

	It("should 404 curve lookups without a cache", func() {
		rec := serve(h, http.MethodGet, "/v1/curves/abc", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Header().Get("X-Curve-Key")).To(BeEmpty())
	})
})

var _ = Describe("Models", func() {
	It("should list the catalogue", func() {
		h := New(curve.New(curve.Options{Mode: curve.ModeBilinear, MaxPoints: 500}))
		rec := serve(h, http.MethodGet, "/v1/models", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var out ModelsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &out)).To(Succeed())
		Expect(out.DefaultMode).To(Equal(curve.ModeBilinear))
		Expect(out.DefaultPoints).To(Equal(curve.DefaultPoints))
		Expect(out.MaxPoints).To(Equal(500))
		Expect(out.Models).To(HaveLen(6))
		Expect(out.Models).To(ContainElement(ModelInfo{Tag: "Fracture fit", Model: "fracture-fit", Multiplier: 0.8}))
	})
})
