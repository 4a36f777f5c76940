package curve

import "strconv"

// Decimal places applied at output.
const (
	ScaledStrainDecimals   = 4
	BilinearStrainDecimals = 5
	StressDecimals         = 2
)

// Round rounds v to the given number of decimal places. The decimal digits
// come from strconv, so the result is correctly rounded from the exact binary
// value and exact ties go to even (0.125 -> 0.12).
func Round(v float64, places int) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', places, 64), 64)
	if r == 0 {
		// drop negative zero so JSON shows 0
		return 0
	}
	return r
}
