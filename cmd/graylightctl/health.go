package main

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show bridge health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			h, err := clientFor(cmd).Health(cmd.Context())
			// A degraded bridge answers 503 with the health document.
			if err != nil && h.Status == "" {
				return err
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, h)
			}

			fmt.Fprintf(out, "status:  %s\nversion: %s\nuptime:  %ds\nlights:  %d\n",
				h.Status, h.Version, h.Uptime, h.Lights)
			for _, name := range slices.Sorted(maps.Keys(h.Components)) {
				fmt.Fprintf(out, "  %-10s %s\n", name, h.Components[name])
			}
			return err
		},
	}
}
