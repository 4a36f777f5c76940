package curve

import (
	"fmt"
	"strings"
)

// Model selects the hardening model applied by the scaled-linear mode.
type Model int

const (
	Nelson Model = iota
	FractureFit
	Considere
)

// DefaultModel is used for empty and unrecognized model tags.
const DefaultModel = Nelson

var modelNames = map[Model]string{
	Nelson:      "nelson",
	FractureFit: "fracture-fit",
	Considere:   "considere",
}

func Models() []Model {
	return []Model{Nelson, FractureFit, Considere}
}

func (m Model) String() string {
	if s, ok := modelNames[m]; ok {
		return s
	}
	return fmt.Sprintf("model(%d)", int(m))
}

func (m Model) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// Multiplier is the factor applied to the elastic line E*strain.
func (m Model) Multiplier() float64 {
	switch m {
	case Nelson:
		return 1.0
	case FractureFit:
		return 0.8
	case Considere:
		return 0.5
	default:
		return 1.0
	}
}

// ParseModelName maps a canonical model name ("nelson", "fracture-fit",
// "considere") to its Model.
func ParseModelName(s string) (Model, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for m, n := range modelNames {
		if n == name {
			return m, nil
		}
	}
	return DefaultModel, fmt.Errorf("unknown model name %q", s)
}

// Mode selects which curve formula is evaluated.
type Mode string

const (
	// ModeScaled evaluates E*strain*multiplier(model) over NumPoints samples.
	ModeScaled Mode = "scaled"
	// ModeBilinear evaluates the elastic / linear-hardening curve.
	ModeBilinear Mode = "bilinear"
)

// ParseMode accepts "scaled" or "bilinear". The empty string yields "" so the
// caller can substitute its default.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case ModeScaled:
		return ModeScaled, nil
	case ModeBilinear:
		return ModeBilinear, nil
	default:
		return "", &ParameterError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q (want scaled or bilinear)", s)}
	}
}
