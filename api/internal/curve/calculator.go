// Package curve evaluates stress-strain curves from scalar material parameters.
//
// Two formulas are available and selected per request by Mode:
//
//   - ModeScaled: stress = E * strain * m, with m chosen by the hardening
//     model tag (Nelson 1.0, Fracture fit 0.8, Considere 0.5). Sy and Et are
//     accepted but not used.
//   - ModeBilinear: Hooke's law up to the yield strain Sy/E, then linear
//     hardening with slope Et. The curve is continuous at the yield point.
//
// Strains are sampled evenly over [0, emax] inclusive. Rounding is applied to
// the emitted points only.
package curve

import (
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultPoints is the bilinear sample count and the scaled-mode count
	// used when a request does not carry one.
	DefaultPoints = 100
	// MinPoints is the floor applied to the scaled-mode sample count.
	MinPoints = 2
)

// Parameters are the material inputs of a single calculation.
type Parameters struct {
	E         float64 `json:"E"`
	Sy        float64 `json:"Sy"`
	Et        float64 `json:"Et"`
	Emax      float64 `json:"emax"`
	ModelType string  `json:"modelType,omitempty"`
	NumPoints int     `json:"numPoints,omitempty"`
	Mode      Mode    `json:"mode,omitempty"`
}

// Point is one sample of the curve.
type Point struct {
	Strain float64 `json:"strain"`
	Stress float64 `json:"stress"`
}

// Plan is a validated, fully resolved calculation. Two requests that resolve
// to the same Plan produce the same curve.
type Plan struct {
	Mode   Mode    `json:"mode"`
	Model  Model   `json:"model"`
	Points int     `json:"points"`
	E      float64 `json:"E"`
	Sy     float64 `json:"Sy"`
	Et     float64 `json:"Et"`
	Emax   float64 `json:"emax"`

	// KnownTag is false when the request's model tag was not in the catalogue
	// and the default model was substituted.
	KnownTag bool `json:"-"`
}

type Options struct {
	// Mode applies when Parameters.Mode is empty. Defaults to ModeScaled.
	Mode Mode
	// Points is the bilinear sample count. Defaults to DefaultPoints.
	Points int
	// MaxPoints caps the sample count in both modes; 0 disables the cap.
	MaxPoints int
	// Catalogue resolves model tags. Defaults to DefaultCatalogue().
	Catalogue Catalogue
}

// Calculator is safe for concurrent use; it holds no mutable state.
type Calculator struct {
	opts Options
}

func New(opts Options) *Calculator {
	if opts.Mode == "" {
		opts.Mode = ModeScaled
	}
	if opts.Points < MinPoints {
		opts.Points = DefaultPoints
	}
	if opts.MaxPoints < 0 {
		opts.MaxPoints = 0
	}
	if opts.Catalogue == nil {
		opts.Catalogue = DefaultCatalogue()
	}
	return &Calculator{opts: opts}
}

func (c *Calculator) DefaultMode() Mode    { return c.opts.Mode }
func (c *Calculator) DefaultPoints() int   { return c.opts.Points }
func (c *Calculator) MaxPoints() int       { return c.opts.MaxPoints }
func (c *Calculator) Catalogue() Catalogue { return c.opts.Catalogue }

func (c *Calculator) Compute(p Parameters) ([]Point, error) {
	plan, err := c.Resolve(p)
	if err != nil {
		return nil, err
	}
	return Evaluate(plan), nil
}

// Resolve validates p and fixes mode, model and sample count.
func (c *Calculator) Resolve(p Parameters) (Plan, error) {
	for _, f := range []struct {
		name string
		v    float64
	}{{"E", p.E}, {"Sy", p.Sy}, {"Et", p.Et}, {"emax", p.Emax}} {
		if err := checkFinite(f.name, f.v); err != nil {
			return Plan{}, err
		}
	}
	if p.Emax < 0 {
		return Plan{}, invalid("emax", "must be >= 0, got %g", p.Emax)
	}

	mode, err := ParseMode(string(p.Mode))
	if err != nil {
		return Plan{}, err
	}
	if mode == "" {
		mode = c.opts.Mode
	}

	plan := Plan{Mode: mode, E: p.E, Sy: p.Sy, Et: p.Et, Emax: p.Emax, Model: DefaultModel, KnownTag: true}

	switch mode {
	case ModeBilinear:
		if p.E <= 0 {
			return Plan{}, invalid("E", "must be > 0 for the bilinear model (yield strain is Sy/E), got %g", p.E)
		}
		plan.Points = c.opts.Points
	default:
		plan.Model, plan.KnownTag = c.opts.Catalogue.Lookup(p.ModelType)
		plan.Points = max(MinPoints, p.NumPoints)
	}
	if c.opts.MaxPoints > 0 && plan.Points > c.opts.MaxPoints {
		return Plan{}, invalid("numPoints", "must be <= %d, got %d", c.opts.MaxPoints, plan.Points)
	}
	return plan, nil
}

func Evaluate(plan Plan) []Point {
	if plan.Mode == ModeBilinear {
		return Bilinear(plan.E, plan.Sy, plan.Et, plan.Emax, plan.Points)
	}
	return ScaledLinear(plan.E, plan.Emax, plan.Model, plan.Points)
}

// Strains returns n evenly spaced strains from 0 to emax inclusive.
// n must be at least 2.
func Strains(emax float64, n int) []float64 {
	return floats.Span(make([]float64, n), 0, emax)
}

// ScaledLinear evaluates stress = E * strain * m.Multiplier().
func ScaledLinear(e, emax float64, m Model, n int) []Point {
	mult := m.Multiplier()
	strains := Strains(emax, max(MinPoints, n))
	out := make([]Point, len(strains))
	for i, strain := range strains {
		out[i] = Point{
			Strain: Round(strain, ScaledStrainDecimals),
			Stress: Round(e*strain*mult, StressDecimals),
		}
	}
	return out
}

// YieldStrain is the strain at which the bilinear curve leaves the elastic branch.
func YieldStrain(e, sy float64) float64 {
	return sy / e
}

// BilinearStress evaluates the elastic / linear-hardening law at one strain.
func BilinearStress(strain, e, sy, et float64) float64 {
	if yield := YieldStrain(e, sy); strain > yield {
		return sy + (strain-yield)*et
	}
	return strain * e
}

// Bilinear evaluates the elastic / linear-hardening curve over n samples.
func Bilinear(e, sy, et, emax float64, n int) []Point {
	strains := Strains(emax, max(MinPoints, n))
	out := make([]Point, len(strains))
	for i, strain := range strains {
		out[i] = Point{
			Strain: Round(strain, BilinearStrainDecimals),
			Stress: Round(BilinearStress(strain, e, sy, et), StressDecimals),
		}
	}
	return out
}
