// Package cmdutil provides shared utilities for markhive commands.
package cmdutil

import (
	"fmt"
	"io"

	"github.com/markhive/markhive/internal/cli/output"
	"github.com/markhive/markhive/pkg/apiclient"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ServerURL string
	Output    string
}

// GetClient returns an API client for the configured server URL.
func GetClient() (*apiclient.Client, error) {
	if Flags.ServerURL == "" {
		return nil, fmt.Errorf("no server URL configured. Use --server <url>")
	}
	return apiclient.New(Flags.ServerURL), nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses
// the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	if format == output.FormatTable {
		if isEmpty {
			_, err := fmt.Fprintln(w, emptyMsg)
			return err
		}
		return output.Print(w, format, tableRenderer)
	}
	return output.Print(w, format, data)
}

// EmptyOr returns fallback when s is empty, s otherwise.
func EmptyOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
