// Package main provides the upid binary. It exposes three commands:
//
//	upid serve            run the HTTP service (config from UPID_* environment variables)
//	upid new <prefix>     print freshly generated identifiers
//	upid inspect <id>     decode an identifier or UUID and print its fields
//
// serve loads and validates configuration, opens the SQLite registry, starts
// the metrics flusher and janitor, and serves HTTP until SIGINT or SIGTERM.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "upid",
		Short:        "Generate, inspect and serve prefixed sortable identifiers",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newNewCmd(), newInspectCmd())
	return root
}

// newLogger builds a slog.Logger from the configured level and format.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", format)
	}
}
