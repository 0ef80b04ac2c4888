package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markhive/markhive/cmd/markhive/cmdutil"
	"github.com/markhive/markhive/internal/cli/timeutil"
	"github.com/markhive/markhive/pkg/config"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/store"
)

var (
	docsPage    int
	docsPerPage int
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List indexed documents",
	Long: `List documents in the local index, most recently updated first.

Reads the configured database directly; the server does not need to be
running.

Examples:
  # List the most recent documents as a table
  markhive docs

  # Second page, 100 per page
  markhive docs --page 2 --per-page 100

  # As JSON
  markhive docs -o json`,
	RunE: runDocs,
}

func init() {
	docsCmd.Flags().IntVar(&docsPage, "page", 1, "Page number")
	docsCmd.Flags().IntVar(&docsPerPage, "per-page", 50, "Documents per page")
	docsCmd.Flags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table, json, yaml)")
}

// DocumentList is a list of documents for table rendering.
type DocumentList []*models.Document

// Headers implements TableRenderer.
func (dl DocumentList) Headers() []string {
	return []string{"ID", "FILE", "TYPE", "STATUS", "SOURCE", "MODIFIED", "ERROR"}
}

// Rows implements TableRenderer.
func (dl DocumentList) Rows() [][]string {
	rows := make([][]string, 0, len(dl))
	for _, d := range dl {
		errMsg := "-"
		if d.ErrorMessage != nil {
			errMsg = *d.ErrorMessage
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", d.ID),
			d.FileName,
			cmdutil.EmptyOr(d.FileType, "-"),
			string(d.Status),
			cmdutil.EmptyOr(d.Source, "-"),
			timeutil.FormatLocal(d.FileModifiedTime),
			errMsg,
		})
	}
	return rows
}

func runDocs(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	docs, err := st.ListDocuments(context.Background(), docsPage, docsPerPage)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	return cmdutil.PrintOutput(os.Stdout, docs, len(docs) == 0, "No documents found.", DocumentList(docs))
}
