package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/markhive/markhive/pkg/config"
	"github.com/markhive/markhive/pkg/convert"
	"github.com/markhive/markhive/pkg/ingest"
	"github.com/markhive/markhive/pkg/store"
)

var (
	ingestRecursive bool
	ingestDateFrom  string
	ingestDateTo    string
	ingestFileTypes []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <folder>",
	Short: "Ingest a folder in the foreground",
	Long: `Run one ingestion session in the foreground, without the API server.

The folder is scanned, each supported file is converted to markdown, and
the outcome is persisted to the configured database. Progress events are
printed as they happen. Ctrl+C cancels the session gracefully; the
ingest cursor is persisted so the next run resumes where this one
stopped.

Examples:
  # Ingest a folder recursively
  markhive ingest ~/Documents/notes

  # Only files modified since a date
  markhive ingest ~/Documents/notes --date-from 2026-01-01

  # Restrict to specific extensions
  markhive ingest ~/Documents/notes --file-types md,pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestRecursive, "recursive", true, "Recurse into subdirectories")
	ingestCmd.Flags().StringVar(&ingestDateFrom, "date-from", "", "Only files modified on or after this date (YYYY-MM-DD)")
	ingestCmd.Flags().StringVar(&ingestDateTo, "date-to", "", "Only files modified on or before this date (YYYY-MM-DD)")
	ingestCmd.Flags().StringSliceVar(&ingestFileTypes, "file-types", nil, "Restrict to these extensions (comma-separated, no dot)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	dateFrom, err := parseDayFlag(ingestDateFrom, false)
	if err != nil {
		return fmt.Errorf("invalid --date-from: %w", err)
	}
	dateTo, err := parseDayFlag(ingestDateTo, true)
	if err != nil {
		return fmt.Errorf("invalid --date-to: %w", err)
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer func() { _ = st.Close() }()

	convert.Bootstrap(cfg.ConvertOptions())

	registry := ingest.NewRegistry(
		cfg.Ingest.SessionHistoryCapacity,
		time.Duration(cfg.Ingest.SessionGraceSeconds)*time.Second,
	)
	coordinator := ingest.NewCoordinator(st, registry, cfg.IngestOptions(), nil)

	session, err := coordinator.Start(context.Background(), ingest.Request{
		Folder:    args[0],
		Recursive: ingestRecursive,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
		FileTypes: ingestFileTypes,
	})
	if err != nil {
		return err
	}

	// Ctrl+C flips the session stop flag; the event stream still ends
	// with a terminal event, so the print loop below drains naturally.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling session...")
		registry.Cancel(session.ID)
	}()

	fmt.Printf("Session %s started for %s\n", session.ID, session.FolderPath)

	sub := session.Bus().Subscribe()
	defer sub.Cancel()
	for {
		ev, ok := sub.Next(context.Background())
		if !ok {
			break
		}
		printEvent(ev)
		if ev.Stage == ingest.StageCriticalError {
			return fmt.Errorf("ingestion failed: %s", ev.Message)
		}
	}
	return nil
}

// printEvent renders one session event as a human-readable line.
func printEvent(ev ingest.Event) {
	switch ev.Stage {
	case ingest.StageScanStart:
		fmt.Println("Scanning folder...")
	case ingest.StageScanComplete:
		total := 0
		if ev.TotalFiles != nil {
			total = *ev.TotalFiles
		}
		fmt.Printf("Scan complete: %d files to process\n", total)
	case ingest.StageFileSuccess, ingest.StageFileSkip, ingest.StageFileError:
		marker := "ok"
		switch ev.Stage {
		case ingest.StageFileSkip:
			marker = "skip"
		case ingest.StageFileError:
			marker = "FAIL"
		}
		progress := ""
		if ev.Progress != nil && ev.TotalFiles != nil {
			progress = fmt.Sprintf("[%d/%d] ", *ev.Progress, *ev.TotalFiles)
		}
		fmt.Printf("%s%-4s %s\n", progress, marker, ev.CurrentFile)
	case ingest.StageCancelled:
		fmt.Println("Session cancelled")
	case ingest.StageDone:
		if ev.Summary != nil {
			fmt.Printf("Done: %d processed, %d skipped, %d errors (of %d files)\n",
				ev.Summary.ProcessedFiles, ev.Summary.SkippedFiles,
				ev.Summary.ErrorFiles, ev.Summary.TotalFiles)
		} else {
			fmt.Println("Done")
		}
	}
}

// parseDayFlag parses a YYYY-MM-DD flag value. For upper bounds the time
// is pushed to the end of the day so the named day is inclusive.
func parseDayFlag(s string, endOfDay bool) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
