package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
var version = "dev"

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 10 * time.Second
)

// newRootCmd builds the command tree. Each call returns a fresh tree so
// tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "graylightctl",
		Short:         "graylightctl controls a graylight bridge",
		Long:          `graylightctl lists lights, reads and sets their state, and shows state history through the graylight REST API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	server := os.Getenv("GRAYLIGHT_SERVER")
	if server == "" {
		server = defaultServer
	}
	root.PersistentFlags().String("server", server, "graylight base URL (env GRAYLIGHT_SERVER)")
	root.PersistentFlags().Duration("timeout", defaultTimeout, "request timeout")
	root.PersistentFlags().Bool("json", false, "print raw JSON")

	root.AddCommand(
		newHealthCmd(),
		newLightsCmd(),
		newStateCmd(),
		newResolveCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx := context.Background()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func clientFor(cmd *cobra.Command) *client {
	server, _ := cmd.Flags().GetString("server")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return newClient(server, timeout)
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
