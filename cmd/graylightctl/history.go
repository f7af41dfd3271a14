package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <light-id>",
		Short: "Show recorded state history for a light, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			res, err := clientFor(cmd).History(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, res)
			}
			if res.Count == 0 {
				fmt.Fprintf(out, "No history for light %s.\n", args[0])
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tSOURCE\tON\tBRI\tREACHABLE")
			for _, e := range res.History {
				on, _ := e.State.On()
				bri, hasBri := e.State.Bri()
				briText := "-"
				if hasBri {
					briText = fmt.Sprint(bri)
				}
				fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%t\n",
					e.CreatedAt.Local().Format(time.DateTime), e.Source, on, briText, e.State.Reachable())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 0, "maximum entries to show (server default 50, max 200)")
	return cmd
}
