package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/haukened/upid"
	"github.com/haukened/upid/internal/app"
)

func newNewCmd() *cobra.Command {
	var (
		count int
		ms    int64
	)
	cmd := &cobra.Command{
		Use:   "new <prefix>",
		Short: "Print new identifiers for prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printNew(cmd.OutOrStdout(), upid.Default, args[0], count, ms)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of identifiers to print")
	cmd.Flags().Int64Var(&ms, "ms", -1, "embed this Unix millisecond timestamp instead of now")
	return cmd
}

func printNew(w io.Writer, g *upid.Generator, prefix string, count int, ms int64) error {
	if count < 1 {
		return errors.New("count must be at least 1")
	}
	for range count {
		var (
			id  upid.UPID
			err error
		)
		if ms >= 0 {
			id, err = g.FromPrefixAndMilliseconds(prefix, ms)
		} else {
			id, err = g.FromPrefix(prefix)
		}
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <id|uuid>",
		Short: "Decode an identifier and print its fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printInspect(cmd.OutOrStdout(), args[0], asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func printInspect(w io.Writer, raw string, asJSON bool) error {
	id, err := app.ParseID(raw)
	if err != nil {
		return err
	}
	d := app.Describe(id)
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			ID           string    `json:"id"`
			Prefix       string    `json:"prefix"`
			Version      string    `json:"version"`
			Milliseconds int64     `json:"milliseconds"`
			Time         time.Time `json:"time"`
			UUID         string    `json:"uuid"`
		}{d.ID.String(), d.Prefix, d.Version, d.Milliseconds, d.Time, d.UUID.String()})
	}
	_, err = fmt.Fprintf(w, "id:           %s\nprefix:       %s\nversion:      %s\nmilliseconds: %d\ntime:         %s\nuuid:         %s\n",
		d.ID, d.Prefix, d.Version, d.Milliseconds, d.Time.Format(time.RFC3339Nano), d.UUID)
	return err
}
