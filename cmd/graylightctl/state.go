package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nerrad567/graylight/internal/api"
	"github.com/nerrad567/graylight/internal/light"
)

func newStateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Read and change light state",
	}

	get := &cobra.Command{
		Use:   "get <light-id>",
		Short: "Show a light's current state",
		Long:  `Show a light's current state. Virtual lights are resolved from their children.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFor(cmd).GetState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printState(cmd, res)
		},
	}

	set := &cobra.Command{
		Use:   "set <light-id> [field=value]...",
		Short: "Change a light's state",
		Long: `Change a light's state. Fields are given as field=value pairs, e.g.

  graylightctl state set 10 on=true bri=200
  graylightctl state set 10 xy=0.31,0.33

or as a JSON document with --data.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _ := cmd.Flags().GetString("data")
			delta, err := parseDelta(args[1:], data)
			if err != nil {
				return err
			}
			res, err := clientFor(cmd).SetState(cmd.Context(), args[0], delta)
			if err != nil {
				return err
			}
			return printState(cmd, res)
		},
	}
	set.Flags().String("data", "", `state as JSON, e.g. '{"on":true}'`)

	cmd.AddCommand(get, set)
	return cmd
}

// newResolveCmd is a top-level shortcut for "state get".
func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <light-id>",
		Short: "Resolve a virtual light from its children and show the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := clientFor(cmd).GetState(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printState(cmd, res)
		},
	}
}

// parseDelta builds a partial state from field=value pairs and an optional
// JSON document. Pairs override fields from the document.
func parseDelta(pairs []string, data string) (light.State, error) {
	delta := light.State{}
	if data != "" {
		if err := json.Unmarshal([]byte(data), &delta); err != nil {
			return nil, fmt.Errorf("invalid --data: %w", err)
		}
	}
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid field %q: want field=value", p)
		}
		delta[key] = parseValue(raw)
	}
	if len(delta) == 0 {
		return nil, fmt.Errorf("no state fields given")
	}
	return delta, nil
}

// parseValue interprets a command line value as a bool, integer, float or
// comma separated float pair, falling back to a string.
func parseValue(raw string) any {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if parts := strings.Split(raw, ","); len(parts) > 1 {
		vals := make([]float64, 0, len(parts))
		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return raw
			}
			vals = append(vals, f)
		}
		return vals
	}
	return raw
}

func printState(cmd *cobra.Command, res api.StateResponse) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		return printJSON(out, res)
	}

	fmt.Fprintf(out, "light %s\n", res.LightID)
	writeFields(out, res.State)
	if res.Warning != "" {
		fmt.Fprintf(out, "warning: %s\n", res.Warning)
	}
	if len(res.Children) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHILD\tADDRESS\tREACHABLE\tERROR")
	for _, c := range res.Children {
		addr := c.Address
		if addr == "" {
			addr = "-"
		}
		errText := "-"
		if c.Error != "" {
			errText = fmt.Sprintf("%s: %s", c.Kind, c.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", c.LightID, addr, c.Reachable, errText)
	}
	return tw.Flush()
}

func writeFields(w io.Writer, st light.State) {
	for _, k := range slices.Sorted(maps.Keys(st)) {
		fmt.Fprintf(w, "  %-10s %v\n", k, st[k])
	}
}
