package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/markhive/markhive/internal/logger"
	"github.com/markhive/markhive/pkg/convert"
	"github.com/markhive/markhive/pkg/models"
	"github.com/markhive/markhive/pkg/scan"
	"github.com/markhive/markhive/pkg/store"
)

// MetricsRecorder receives pipeline counters. A nil recorder is valid.
type MetricsRecorder interface {
	SessionStarted()
	SessionEnded(outcome string, seconds float64)
	FileOutcome(outcome string)
}

// Session outcome labels for metrics.
const (
	OutcomeCompleted = "completed"
	OutcomeCancelled = "cancelled"
	OutcomeCritical  = "critical_error"
)

// Config holds the coordinator's tunables.
type Config struct {
	// Source is the default provenance label for ingested documents.
	Source string
	// DownloadsRoot marks a directory whose immediate children are
	// scraper drop folders; files under <root>/<name>/ inherit the
	// source label 公众号_<name>.
	DownloadsRoot string
	// WorkerPoolSize bounds concurrent converter calls across all
	// sessions.
	WorkerPoolSize int64
	// ExcludedDirs are glob patterns matched against directory basenames
	// during the scan.
	ExcludedDirs []string
	// ExcludedExtensions are always skipped even when registered.
	ExcludedExtensions []string
}

func (c *Config) applyDefaults() {
	if c.Source == "" {
		c.Source = models.SourceLocalFS
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = 4
	}
}

// Coordinator runs ingestion sessions: one goroutine per session walks
// the folder, dispatches conversions through a shared bounded worker
// pool, and persists per-file outcomes.
type Coordinator struct {
	store    *store.GORMStore
	registry *Registry
	cfg      Config
	sem      *semaphore.Weighted
	metrics  MetricsRecorder
}

func NewCoordinator(st *store.GORMStore, reg *Registry, cfg Config, metrics MetricsRecorder) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		store:    st,
		registry: reg,
		cfg:      cfg,
		sem:      semaphore.NewWeighted(cfg.WorkerPoolSize),
		metrics:  metrics,
	}
}

// Registry returns the session registry the coordinator publishes to.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Request describes one ingestion run.
type Request struct {
	Folder    string
	Recursive bool
	DateFrom  *time.Time
	DateTo    *time.Time
	FileTypes []string
}

// Start validates the request, allocates a session, and launches the run
// in the background. The returned session's bus streams progress.
func (c *Coordinator) Start(ctx context.Context, req Request) (*Session, error) {
	folder, err := scan.NormalizePath(req.Folder)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(folder)
	if err != nil {
		return nil, fmt.Errorf("folder not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", folder)
	}
	req.Folder = folder

	s := c.registry.Start(folder, Params{
		Recursive: req.Recursive,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		FileTypes: req.FileTypes,
	})
	if c.metrics != nil {
		c.metrics.SessionStarted()
	}

	go c.run(s, req)
	return s, nil
}

// run executes the session state machine. Runs detached from the
// request context; cancellation happens through the session stop flag.
func (c *Coordinator) run(s *Session, req Request) {
	lc := logger.NewLogContext(s.ID).WithScope(c.cfg.Source, req.Folder)
	ctx := logger.WithContext(context.Background(), lc)

	runStart := time.Now().UTC()
	var processed, skipped, errCount, total int
	var stateID uint
	cancelled := false
	var criticalErr error

	defer func() {
		if r := recover(); r != nil {
			criticalErr = fmt.Errorf("panic: %v", r)
		}
		c.finalize(ctx, s, stateID, Summary{
			TotalFiles:     total,
			ProcessedFiles: processed,
			SkippedFiles:   skipped,
			ErrorFiles:     errCount,
		}, runStart, cancelled, criticalErr)
	}()

	state, err := c.store.GetOrCreateIngestState(ctx, c.cfg.Source, req.Folder)
	if err != nil {
		criticalErr = fmt.Errorf("ingest state: %w", err)
		return
	}
	stateID = state.ID

	// Effective lower bound: explicit date_from, else the persisted
	// cursor. The cursor applies at day granularity so files touched the
	// same day as the last run are re-checked against their stored mtime
	// instead of being filtered out of the scan.
	dateFrom := req.DateFrom
	if dateFrom == nil && state.CursorUpdatedAt != nil {
		day := state.CursorUpdatedAt.UTC().Truncate(24 * time.Hour)
		dateFrom = &day
		logger.InfoCtx(ctx, "resuming from cursor", "cursor", day.Format(time.RFC3339))
	}

	if err := c.store.BeginRun(ctx, state.ID, runStart); err != nil {
		criticalErr = fmt.Errorf("begin run: %w", err)
		return
	}

	c.emit(s, Event{
		Level:   LevelInfo,
		Stage:   StageScanStart,
		Message: fmt.Sprintf("Scanning %s", req.Folder),
	})

	// No explicit file_types means scan everything; unsupported
	// extensions surface as file_error at dispatch rather than being
	// silently invisible.
	files, err := scan.Scan(ctx, scan.Options{
		Root:               req.Folder,
		Recursive:          req.Recursive,
		AllowedExtensions:  req.FileTypes,
		MtimeFrom:          dateFrom,
		MtimeTo:            req.DateTo,
		ExcludedDirs:       c.cfg.ExcludedDirs,
		ExcludedExtensions: c.cfg.ExcludedExtensions,
	})
	if err != nil {
		criticalErr = fmt.Errorf("scan: %w", err)
		return
	}

	total = len(files)
	c.emit(s, Event{
		Level:      LevelInfo,
		Stage:      StageScanComplete,
		Message:    fmt.Sprintf("Found %d files", total),
		TotalFiles: &total,
	})
	if err := c.store.SetTotalFiles(ctx, state.ID, total); err != nil {
		criticalErr = fmt.Errorf("persist total: %w", err)
		return
	}

	for i, path := range files {
		if s.Stopped() {
			cancelled = true
			c.emit(s, Event{
				Level:   LevelWarning,
				Stage:   StageCancelled,
				Message: "Ingestion cancelled",
			})
			break
		}

		fileCtx := logger.WithContext(ctx, lc.WithPath(path))

		meta, err := scan.Probe(path)
		if err != nil {
			skipped++
			c.fileOutcome("skipped")
			logger.WarnCtx(fileCtx, "file skipped", logger.KeyReason, SkipMetadata, logger.KeyError, err.Error())
			c.emit(s, Event{
				Level:       LevelWarning,
				Stage:       StageFileSkip,
				Message:     fmt.Sprintf("Skipping %s: metadata unavailable", path),
				CurrentFile: path,
				Reason:      SkipMetadata,
			})
			continue
		}

		progress := (i + 1) * 100 / total
		c.emit(s, Event{
			Level:       LevelInfo,
			Stage:       StageFileProcessing,
			Message:     fmt.Sprintf("Processing %s", meta.FileName),
			CurrentFile: meta.FilePath,
			Progress:    &progress,
		})

		existing, err := c.store.LookupByPath(ctx, meta.FilePath)
		if err == nil && existing.Status == models.StatusCompleted &&
			existing.FileModifiedTime.Equal(meta.FileModifiedTime) {
			skipped++
			c.fileOutcome("skipped")
			c.emit(s, Event{
				Level:       LevelInfo,
				Stage:       StageFileSkip,
				Message:     fmt.Sprintf("Unchanged: %s", meta.FileName),
				CurrentFile: meta.FilePath,
				Reason:      SkipUnchanged,
			})
			continue
		}
		if err != nil && !errors.Is(err, models.ErrDocumentNotFound) {
			// Per-file database failures do not abort the run.
			errCount++
			c.fileOutcome("error")
			logger.ErrorCtx(fileCtx, "document lookup failed", logger.KeyError, err.Error())
			c.emit(s, Event{
				Level:       LevelError,
				Stage:       StageFileError,
				Message:     fmt.Sprintf("Failed %s: %v", meta.FileName, err),
				CurrentFile: meta.FilePath,
			})
			continue
		}

		w := store.DocumentWrite{
			FilePath:         meta.FilePath,
			FileName:         meta.FileName,
			FileType:         meta.FileType,
			FileSize:         meta.FileSize,
			FileCreatedAt:    meta.FileCreatedAt,
			FileModifiedTime: meta.FileModifiedTime,
			Source:           c.deriveSource(meta.FilePath),
			SourceURL:        readSidecarURL(path),
		}

		res := c.convertFile(fileCtx, meta)
		if res.Success {
			if _, err := c.store.MarkCompleted(ctx, w, res.Content, res.ConversionType); err != nil {
				errCount++
				c.fileOutcome("error")
				logger.ErrorCtx(fileCtx, "document write failed", logger.KeyError, err.Error())
				c.emit(s, Event{
					Level:       LevelError,
					Stage:       StageFileError,
					Message:     fmt.Sprintf("Failed %s: %v", meta.FileName, err),
					CurrentFile: meta.FilePath,
				})
				continue
			}
			processed++
			c.fileOutcome("processed")
			c.emit(s, Event{
				Level:       LevelInfo,
				Stage:       StageFileSuccess,
				Message:     fmt.Sprintf("Converted %s", meta.FileName),
				CurrentFile: meta.FilePath,
			})
		} else {
			if _, err := c.store.MarkFailed(ctx, w, res.Error); err != nil {
				logger.ErrorCtx(fileCtx, "document write failed", logger.KeyError, err.Error())
			}
			errCount++
			c.fileOutcome("error")
			logger.WarnCtx(fileCtx, "conversion failed", logger.KeyError, res.Error)
			c.emit(s, Event{
				Level:       LevelError,
				Stage:       StageFileError,
				Message:     fmt.Sprintf("Failed %s: %s", meta.FileName, res.Error),
				CurrentFile: meta.FilePath,
			})
		}
	}
}

// convertFile dispatches a conversion through the shared worker pool.
func (c *Coordinator) convertFile(ctx context.Context, meta *scan.FileMeta) convert.Result {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return convert.Fail(meta.FilePath, meta.FileType, fmt.Sprintf("worker pool: %v", err))
	}
	defer c.sem.Release(1)
	return convert.Convert(ctx, meta.FilePath, meta.FileType)
}

// finalize emits the terminal event, persists the run outcome, and ends
// the session. It always runs, whatever path the loop took out.
func (c *Coordinator) finalize(ctx context.Context, s *Session, stateID uint, summary Summary, runStart time.Time, cancelled bool, criticalErr error) {
	outcome := OutcomeCompleted

	if criticalErr != nil {
		outcome = OutcomeCritical
		logger.ErrorCtx(ctx, "ingestion failed", logger.KeyError, criticalErr.Error())
		if stateID != 0 {
			if err := c.store.SetLastError(ctx, stateID, criticalErr.Error()); err != nil {
				logger.ErrorCtx(ctx, "failed to persist error", logger.KeyError, err.Error())
			}
		}
		c.emit(s, Event{
			Level:   LevelCritical,
			Stage:   StageCriticalError,
			Message: criticalErr.Error(),
		})
	} else {
		if cancelled {
			outcome = OutcomeCancelled
		} else if stateID != 0 {
			// Cursor advances only on clean completion so a cancelled
			// window is re-covered by the next run.
			if err := c.store.AdvanceCursor(ctx, stateID, runStart); err != nil {
				logger.ErrorCtx(ctx, "failed to advance cursor", logger.KeyError, err.Error())
			}
		}
		c.emit(s, Event{
			Level: LevelInfo,
			Stage: StageDone,
			Message: fmt.Sprintf("Ingestion finished: %d processed, %d skipped, %d errors",
				summary.ProcessedFiles, summary.SkippedFiles, summary.ErrorFiles),
			Summary: &summary,
		})
	}

	if stateID != 0 {
		if err := c.store.FinishRun(ctx, stateID, summary.ProcessedFiles, summary.SkippedFiles,
			summary.ErrorFiles, time.Now().UTC()); err != nil {
			logger.ErrorCtx(ctx, "failed to persist counters", logger.KeyError, err.Error())
		}
	}

	c.registry.End(s)
	if c.metrics != nil {
		c.metrics.SessionEnded(outcome, time.Since(runStart).Seconds())
	}

	logger.InfoCtx(ctx, "ingestion session ended",
		logger.KeyTotalFiles, summary.TotalFiles,
		logger.KeyProcessed, summary.ProcessedFiles,
		logger.KeySkipped, summary.SkippedFiles,
		logger.KeyErrors, summary.ErrorFiles,
		logger.KeyDurationMs, logger.Duration(runStart),
		"outcome", outcome)
}

func (c *Coordinator) emit(s *Session, ev Event) {
	ev.SessionID = s.ID
	s.bus.Publish(ev)
}

func (c *Coordinator) fileOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.FileOutcome(outcome)
	}
}

// deriveSource labels documents by provenance. Files under a scraper
// drop directory (<downloads root>/<name>/...) get 公众号_<name>; every
// other file gets the default source.
func (c *Coordinator) deriveSource(normalizedPath string) string {
	if c.cfg.DownloadsRoot == "" {
		return c.cfg.Source
	}
	root, err := scan.NormalizePath(c.cfg.DownloadsRoot)
	if err != nil {
		return c.cfg.Source
	}
	rel, ok := strings.CutPrefix(normalizedPath, strings.TrimRight(root, "/")+"/")
	if !ok {
		return c.cfg.Source
	}
	parts := strings.SplitN(rel, "/", 2)
	if len(parts) < 2 || parts[0] == "" {
		// File sits directly in the root, no drop folder to name.
		return c.cfg.Source
	}
	return "公众号_" + parts[0]
}

// sidecarMeta is the <path>.meta.json format. Missing or malformed
// sidecars are silently ignored.
type sidecarMeta struct {
	SourceURL *string `json:"source_url"`
}

func readSidecarURL(path string) *string {
	raw, err := os.ReadFile(path + ".meta.json")
	if err != nil {
		return nil
	}
	var m sidecarMeta
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	if m.SourceURL == nil || strings.TrimSpace(*m.SourceURL) == "" {
		return nil
	}
	url := strings.TrimSpace(*m.SourceURL)
	return &url
}
