package logger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleHandler(t *testing.T) {
	record := func(msg string, attrs ...slog.Attr) slog.Record {
		r := slog.NewRecord(time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC), slog.LevelInfo, msg, 0)
		r.AddAttrs(attrs...)
		return r
	}

	t.Run("PlainLineLayout", func(t *testing.T) {
		var buf bytes.Buffer
		h := newConsoleHandler(&buf, nil, false)

		require.NoError(t, h.Handle(context.Background(), record("session started",
			slog.String("session_id", "abc123"), slog.Int("total_files", 7))))

		assert.Equal(t, "[2026-08-25 10:30:00] [INFO] session started session_id=abc123 total_files=7\n", buf.String())
	})

	t.Run("ColorWrapsLevelAndKeys", func(t *testing.T) {
		var buf bytes.Buffer
		h := newConsoleHandler(&buf, nil, true)

		require.NoError(t, h.Handle(context.Background(), record("hello", slog.String("path", "/x"))))

		assert.Contains(t, buf.String(), ansiGreen+"INFO"+ansiReset)
		assert.Contains(t, buf.String(), ansiCyan+"path"+ansiReset+"=/x")
	})

	t.Run("WithAttrsPrepended", func(t *testing.T) {
		var buf bytes.Buffer
		h := newConsoleHandler(&buf, nil, false).
			WithAttrs([]slog.Attr{slog.String("source", "local_fs")})

		require.NoError(t, h.Handle(context.Background(), record("scan", slog.Int("found", 3))))

		assert.Contains(t, buf.String(), "source=local_fs found=3")
	})

	t.Run("GroupPrefixesKeys", func(t *testing.T) {
		var buf bytes.Buffer
		h := newConsoleHandler(&buf, nil, false).WithGroup("ingest")

		require.NoError(t, h.Handle(context.Background(), record("run", slog.String("folder", "/data"))))

		assert.Contains(t, buf.String(), "ingest.folder=/data")
	})

	t.Run("EnabledHonorsLevelOption", func(t *testing.T) {
		lv := new(slog.LevelVar)
		lv.Set(slog.LevelWarn)
		h := newConsoleHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: lv}, false)

		assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
		assert.True(t, h.Enabled(context.Background(), slog.LevelError))
	})
}
