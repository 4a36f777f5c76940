package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"stress-curve/api/internal/curve"
)

type curveArgs struct {
	Params    curve.Parameters
	HasModel  bool
	HasPoints bool
	HasMode   bool
}

// parseCurveArgs reads "/curve" arguments: whitespace separated key=value
// pairs. Keys are case-insensitive; underscores in a model tag stand for
// spaces ("model=Fracture_fit").
func parseCurveArgs(s string) (curveArgs, error) {
	var (
		out  curveArgs
		seen = map[string]bool{}
	)
	for _, tok := range strings.Fields(s) {
		k, v, ok := strings.Cut(tok, "=")
		if !ok || v == "" {
			return curveArgs{}, fmt.Errorf("expected key=value, got %q", tok)
		}
		switch key := strings.ToLower(k); key {
		case "e", "sy", "et", "emax":
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return curveArgs{}, &curve.ParameterError{Field: fieldName(key), Reason: fmt.Sprintf("%q is not a number", v)}
			}
			seen[key] = true
			switch key {
			case "e":
				out.Params.E = f
			case "sy":
				out.Params.Sy = f
			case "et":
				out.Params.Et = f
			case "emax":
				out.Params.Emax = f
			}
		case "model", "modeltype":
			out.Params.ModelType = strings.ReplaceAll(v, "_", " ")
			out.HasModel = true
		case "points", "numpoints", "n":
			n, err := strconv.Atoi(v)
			if err != nil {
				return curveArgs{}, &curve.ParameterError{Field: "numPoints", Reason: fmt.Sprintf("%q is not an integer", v)}
			}
			out.Params.NumPoints = n
			out.HasPoints = true
		case "mode":
			out.Params.Mode = curve.Mode(v)
			out.HasMode = true
		default:
			return curveArgs{}, fmt.Errorf("unknown argument %q", k)
		}
	}
	for _, key := range []string{"e", "sy", "et", "emax"} {
		if !seen[key] {
			return curveArgs{}, &curve.ParameterError{Field: fieldName(key), Reason: "is required"}
		}
	}
	return out, nil
}

func fieldName(key string) string {
	switch key {
	case "e":
		return "E"
	case "sy":
		return "Sy"
	case "et":
		return "Et"
	default:
		return key
	}
}
