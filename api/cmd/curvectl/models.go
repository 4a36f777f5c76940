package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"stress-curve/api/internal/curve"
)

func newModelsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List hardening models, their multipliers and accepted tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cat, err := ro.catalogue()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "MODEL\tMULTIPLIER\tTAGS")
			for _, m := range curve.Models() {
				fmt.Fprintf(tw, "%s\t%g\t%s\n", m, m.Multiplier(), strings.Join(cat.TagsFor(m), ", "))
			}
			return tw.Flush()
		},
	}
}
