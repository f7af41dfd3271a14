package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "lights",
		Aliases: []string{"light"},
		Short:   "List and inspect lights",
	}

	list := &cobra.Command{
		Use:   "ls",
		Short: "List lights",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			protocol, _ := cmd.Flags().GetString("protocol")
			res, err := clientFor(cmd).ListLights(cmd.Context(), protocol)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if wantJSON(cmd) {
				return printJSON(out, res)
			}
			if res.Count == 0 {
				fmt.Fprintln(out, "No lights found.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPROTOCOL\tTYPE\tCHILDREN")
			for _, d := range res.Lights {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Name, d.Protocol, d.Type, children(d.ProtocolConfig))
			}
			return tw.Flush()
		},
	}
	list.Flags().String("protocol", "", "only list lights using this protocol")

	get := &cobra.Command{
		Use:   "get <light-id>",
		Short: "Show a light's definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := clientFor(cmd).GetLight(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), def)
		},
	}

	cmd.AddCommand(list, get)
	return cmd
}

// children renders a virtual light's linked_lights, or "-".
func children(cfg map[string]any) string {
	raw, ok := cfg["linked_lights"].([]any)
	if !ok || len(raw) == 0 {
		return "-"
	}
	ids := make([]string, 0, len(raw))
	for _, v := range raw {
		ids = append(ids, fmt.Sprint(v))
	}
	return strings.Join(ids, ",")
}
