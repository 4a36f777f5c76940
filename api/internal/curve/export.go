package curve

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes the curve as "Strain,Stress" rows, header first.
func WriteCSV(w io.Writer, pts []Point) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Strain", "Stress"}); err != nil {
		return err
	}
	for _, p := range pts {
		row := []string{
			strconv.FormatFloat(p.Strain, 'f', -1, 64),
			strconv.FormatFloat(p.Stress, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
