package convert

import (
	"archive/zip"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/markhive/markhive/pkg/models"
)

// XMind files are zip archives. Newer releases store the mind map as
// content.json, older ones as content.xml; both are flattened into a
// markdown outline with one heading per sheet and nested bullets for
// topics.

type xmindJSONSheet struct {
	Title     string          `json:"title"`
	RootTopic *xmindJSONTopic `json:"rootTopic"`
}

type xmindJSONTopic struct {
	Title    string `json:"title"`
	Children struct {
		Attached []xmindJSONTopic `json:"attached"`
	} `json:"children"`
	Notes struct {
		Plain struct {
			Content string `json:"content"`
		} `json:"plain"`
	} `json:"notes"`
}

type xmindXMLContent struct {
	XMLName xml.Name        `xml:"xmap-content"`
	Sheets  []xmindXMLSheet `xml:"sheet"`
}

type xmindXMLSheet struct {
	Title string         `xml:"title"`
	Topic *xmindXMLTopic `xml:"topic"`
}

type xmindXMLTopic struct {
	Title    string `xml:"title"`
	Children struct {
		Topics []struct {
			Type   string          `xml:"type,attr"`
			Topics []xmindXMLTopic `xml:"topic"`
		} `xml:"topics"`
	} `xml:"children"`
}

func handleXMind(_ context.Context, path, fileType string) Result {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("not a valid xmind archive: %v", err))
	}
	defer zr.Close()

	if raw, ok := readZipEntry(&zr.Reader, "content.json"); ok {
		md, err := xmindJSONToMarkdown(raw)
		if err != nil {
			return Fail(path, fileType, fmt.Sprintf("content.json parse failed: %v", err))
		}
		return Succeed(path, fileType, md, models.ConversionXMindToMD)
	}
	if raw, ok := readZipEntry(&zr.Reader, "content.xml"); ok {
		md, err := xmindXMLToMarkdown(raw)
		if err != nil {
			return Fail(path, fileType, fmt.Sprintf("content.xml parse failed: %v", err))
		}
		return Succeed(path, fileType, md, models.ConversionXMindToMD)
	}
	return Fail(path, fileType, "xmind archive has neither content.json nor content.xml")
}

func readZipEntry(zr *zip.Reader, name string) ([]byte, bool) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, false
		}
		defer rc.Close()
		raw, err := io.ReadAll(rc)
		if err != nil {
			return nil, false
		}
		return raw, true
	}
	return nil, false
}

func xmindJSONToMarkdown(raw []byte) (string, error) {
	var sheets []xmindJSONSheet
	if err := json.Unmarshal(raw, &sheets); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, sheet := range sheets {
		if i > 0 {
			b.WriteString("\n")
		}
		title := sheet.Title
		if title == "" && sheet.RootTopic != nil {
			title = sheet.RootTopic.Title
		}
		fmt.Fprintf(&b, "# %s\n\n", title)
		if sheet.RootTopic != nil {
			if sheet.RootTopic.Title != "" && sheet.RootTopic.Title != title {
				fmt.Fprintf(&b, "- %s\n", sheet.RootTopic.Title)
				writeJSONTopics(&b, sheet.RootTopic.Children.Attached, 1)
			} else {
				writeJSONTopics(&b, sheet.RootTopic.Children.Attached, 0)
			}
		}
	}
	return b.String(), nil
}

func writeJSONTopics(b *strings.Builder, topics []xmindJSONTopic, depth int) {
	for _, t := range topics {
		fmt.Fprintf(b, "%s- %s\n", strings.Repeat("  ", depth), oneLine(t.Title))
		if note := strings.TrimSpace(t.Notes.Plain.Content); note != "" {
			fmt.Fprintf(b, "%s  > %s\n", strings.Repeat("  ", depth), oneLine(note))
		}
		writeJSONTopics(b, t.Children.Attached, depth+1)
	}
}

func xmindXMLToMarkdown(raw []byte) (string, error) {
	var content xmindXMLContent
	if err := xml.Unmarshal(raw, &content); err != nil {
		return "", err
	}
	var b strings.Builder
	for i, sheet := range content.Sheets {
		if i > 0 {
			b.WriteString("\n")
		}
		title := sheet.Title
		if title == "" && sheet.Topic != nil {
			title = sheet.Topic.Title
		}
		fmt.Fprintf(&b, "# %s\n\n", title)
		if sheet.Topic != nil {
			writeXMLTopics(&b, attachedXMLChildren(sheet.Topic), 0)
		}
	}
	return b.String(), nil
}

func attachedXMLChildren(t *xmindXMLTopic) []xmindXMLTopic {
	for _, group := range t.Children.Topics {
		if group.Type == "" || group.Type == "attached" {
			return group.Topics
		}
	}
	return nil
}

func writeXMLTopics(b *strings.Builder, topics []xmindXMLTopic, depth int) {
	for _, t := range topics {
		fmt.Fprintf(b, "%s- %s\n", strings.Repeat("  ", depth), oneLine(t.Title))
		writeXMLTopics(b, attachedXMLChildren(&t), depth+1)
	}
}

// oneLine collapses embedded newlines so topic titles stay on a single
// bullet line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
