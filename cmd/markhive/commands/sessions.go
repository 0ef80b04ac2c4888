package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markhive/markhive/cmd/markhive/cmdutil"
	"github.com/markhive/markhive/internal/cli/timeutil"
	"github.com/markhive/markhive/pkg/ingest"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List active ingestion sessions",
	Long: `List ingestion sessions currently running on a markhive server.

Examples:
  # List active sessions on the local server
  markhive sessions --server http://localhost:8080

  # As JSON
  markhive sessions --server http://localhost:8080 -o json`,
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&cmdutil.Flags.ServerURL, "server", "http://localhost:8080", "Markhive server URL")
	sessionsCmd.Flags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "Output format (table, json, yaml)")
}

// SessionList is a list of session snapshots for table rendering.
type SessionList []ingest.Snapshot

// Headers implements TableRenderer.
func (sl SessionList) Headers() []string {
	return []string{"SESSION", "FOLDER", "AGE", "EVENTS", "DONE"}
}

// Rows implements TableRenderer.
func (sl SessionList) Rows() [][]string {
	rows := make([][]string, 0, len(sl))
	for _, s := range sl {
		done := "no"
		if s.Done {
			done = "yes"
		}
		rows = append(rows, []string{
			s.SessionID,
			s.FolderPath,
			timeutil.FormatAge(s.StartedAt),
			fmt.Sprintf("%d", len(s.History)),
			done,
		})
	}
	return rows
}

func runSessions(cmd *cobra.Command, args []string) error {
	client, err := cmdutil.GetClient()
	if err != nil {
		return err
	}

	ids, err := client.ActiveSessions()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	snapshots := make([]ingest.Snapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := client.SessionHistory(id)
		if err != nil {
			// Session may have ended between the two calls
			continue
		}
		snapshots = append(snapshots, *snap)
	}

	return cmdutil.PrintOutput(os.Stdout, snapshots, len(snapshots) == 0, "No active sessions.", SessionList(snapshots))
}
