package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Ingestion Sessions
	// ========================================================================
	KeySessionID = "session_id" // Ingestion session identifier
	KeyStage     = "stage"      // Pipeline stage: scan_start, file_processing, done, ...
	KeySource    = "source"     // Provenance label: local_fs, scraper drop dirs
	KeyScope     = "scope"      // Ingestion scope (normalized folder path)
	KeyProgress  = "progress"   // Percentage 0..100

	// ========================================================================
	// Files & Conversion
	// ========================================================================
	KeyPath           = "path"            // Full file path (normalized)
	KeyFilename       = "filename"        // File basename
	KeyFileType       = "file_type"       // Lowercased extension without dot
	KeySize           = "size"            // File size in bytes
	KeyConversionType = "conversion_type" // ConversionType tag
	KeyProvider       = "provider"        // Image caption/OCR provider name
	KeyAttempt        = "attempt"         // Provider chain attempt number
	KeyReason         = "reason"          // Skip reason: unchanged, metadata

	// ========================================================================
	// Counters
	// ========================================================================
	KeyTotalFiles = "total_files"
	KeyProcessed  = "processed"
	KeySkipped    = "skipped"
	KeyErrors     = "errors"

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyRequestID  = "request_id"  // HTTP request ID
	KeyDocumentID = "document_id" // Document primary key
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// SessionID returns a slog.Attr for the ingestion session id.
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// Stage returns a slog.Attr for the pipeline stage.
func Stage(stage string) slog.Attr {
	return slog.String(KeyStage, stage)
}

// Path returns a slog.Attr for a file path.
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Filename returns a slog.Attr for a file basename.
func Filename(name string) slog.Attr {
	return slog.String(KeyFilename, name)
}

// FileType returns a slog.Attr for a lowercased extension.
func FileType(t string) slog.Attr {
	return slog.String(KeyFileType, t)
}

// Size returns a slog.Attr for a byte size.
func Size(n int64) slog.Attr {
	return slog.Int64(KeySize, n)
}

// Provider returns a slog.Attr for a conversion provider name.
func Provider(name string) slog.Attr {
	return slog.String(KeyProvider, name)
}

// Reason returns a slog.Attr for a skip reason.
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Err returns a slog.Attr for an error value; nil errors produce an empty
// message rather than panicking.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds.
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
