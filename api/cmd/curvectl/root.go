package main

import (
	"github.com/spf13/cobra"

	"stress-curve/api/internal/curve"
)

type rootOptions struct {
	modelsFile string
	maxPoints  int
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "curvectl",
		Short: "Compute stress-strain curves from the command line",
		Long: `Compute stress-strain curves without running the HTTP service.

Two formulas are available:
  scaled    stress = E * strain * m, where m depends on the hardening model
  bilinear  elastic up to Sy/E, then linear hardening with slope Et`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&ro.modelsFile, "models", "", "model catalogue YAML file")
	cmd.PersistentFlags().IntVar(&ro.maxPoints, "max-points", 10000, "largest accepted point count (0 = no cap)")

	cmd.AddCommand(newCalcCmd(ro), newModelsCmd(ro))
	return cmd
}

func (ro *rootOptions) catalogue() (curve.Catalogue, error) {
	if ro.modelsFile == "" {
		return curve.DefaultCatalogue(), nil
	}
	return curve.LoadCatalogue(ro.modelsFile)
}
