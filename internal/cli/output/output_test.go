package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type documentRow struct {
	ID     uint   `json:"id" yaml:"id"`
	Path   string `json:"file_path" yaml:"file_path"`
	Status string `json:"status" yaml:"status"`
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"json", FormatJSON, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" yaml ", FormatYAML, false},
		{"xml", "", true},
	}

	for _, tt := range tests {
		t.Run("input_"+tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	doc := documentRow{ID: 7, Path: "/docs/notes.md", Status: "completed"}
	require.NoError(t, PrintJSON(&buf, doc))

	assert.Contains(t, buf.String(), `"file_path": "/docs/notes.md"`)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))
}

func TestPrintYAML(t *testing.T) {
	var buf bytes.Buffer
	doc := documentRow{ID: 7, Path: "/docs/notes.md", Status: "completed"}
	require.NoError(t, PrintYAML(&buf, doc))

	assert.Contains(t, buf.String(), "file_path: /docs/notes.md")
	assert.Contains(t, buf.String(), "status: completed")
}

func TestPrint(t *testing.T) {
	docs := documentList{
		{ID: 1, Path: "/docs/notes.md", Status: "completed"},
		{ID: 2, Path: "/docs/blob.xyz", Status: "failed"},
	}

	t.Run("TableFormatRendersColumns", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, docs))
		assert.Contains(t, buf.String(), "FILE")
		assert.Contains(t, buf.String(), "/docs/notes.md")
	})

	t.Run("TableFormatFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatTable, documentRow{ID: 3, Path: "/x.md"}))
		assert.Contains(t, buf.String(), `"id": 3`)
	})

	t.Run("JSONFormat", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatJSON, docs))
		assert.Contains(t, buf.String(), `"status": "failed"`)
	})

	t.Run("YAMLFormat", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, FormatYAML, docs))
		assert.Contains(t, buf.String(), "status: failed")
	})

	t.Run("UnknownFormatErrors", func(t *testing.T) {
		var buf bytes.Buffer
		require.Error(t, Print(&buf, Format("xml"), docs))
	})
}
