package convert

import (
	"bytes"
	"compress/flate"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/markhive/markhive/pkg/models"
)

// drawio files are mxGraph XML. Each diagram page either embeds an
// mxGraphModel element directly or holds it as base64 raw-deflate of a
// URL-encoded XML string (the legacy compressed format). The handler
// extracts cell labels per page into a markdown outline.

type mxFile struct {
	XMLName  xml.Name    `xml:"mxfile"`
	Diagrams []mxDiagram `xml:"diagram"`
}

type mxDiagram struct {
	Name    string        `xml:"name,attr"`
	Model   *mxGraphModel `xml:"mxGraphModel"`
	Content string        `xml:",chardata"`
}

type mxGraphModel struct {
	Root struct {
		Cells []mxCell `xml:"mxCell"`
	} `xml:"root"`
}

type mxCell struct {
	Value  string `xml:"value,attr"`
	Vertex string `xml:"vertex,attr"`
	Edge   string `xml:"edge,attr"`
}

var htmlTagRe = regexp.MustCompile(`<[^>]+>`)

func handleDrawio(_ context.Context, path, fileType string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fail(path, fileType, fmt.Sprintf("read failed: %v", err))
	}

	var file mxFile
	if err := xml.Unmarshal(raw, &file); err != nil {
		// Some exports are a bare mxGraphModel without the mxfile wrapper.
		var model mxGraphModel
		if err2 := xml.Unmarshal(raw, &model); err2 != nil {
			return Fail(path, fileType, fmt.Sprintf("drawio parse failed: %v", err))
		}
		file.Diagrams = []mxDiagram{{Model: &model}}
	}

	var b strings.Builder
	for i, d := range file.Diagrams {
		if i > 0 {
			b.WriteString("\n")
		}
		name := d.Name
		if name == "" {
			name = fmt.Sprintf("Page %d", i+1)
		}
		fmt.Fprintf(&b, "# %s\n\n", name)

		model := d.Model
		if model == nil {
			model = inflateDiagram(d.Content)
		}
		if model == nil {
			b.WriteString("(no readable content)\n")
			continue
		}
		wrote := false
		for _, cell := range model.Root.Cells {
			label := cellLabel(cell.Value)
			if label == "" {
				continue
			}
			if cell.Edge == "1" {
				fmt.Fprintf(&b, "- (edge) %s\n", label)
			} else {
				fmt.Fprintf(&b, "- %s\n", label)
			}
			wrote = true
		}
		if !wrote {
			b.WriteString("(no labeled elements)\n")
		}
	}

	return Succeed(path, fileType, b.String(), models.ConversionDrawioToMD)
}

// inflateDiagram decodes the legacy compressed page format. Returns nil
// when the content is not decodable.
func inflateDiagram(content string) *mxGraphModel {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	compressed, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil
	}
	fr := flate.NewReader(bytes.NewReader(compressed))
	inflated, err := io.ReadAll(fr)
	if err != nil {
		return nil
	}
	decoded, err := url.QueryUnescape(string(inflated))
	if err != nil {
		return nil
	}
	var model mxGraphModel
	if err := xml.Unmarshal([]byte(decoded), &model); err != nil {
		return nil
	}
	return &model
}

// cellLabel strips the HTML markup drawio embeds in cell values and
// collapses the text to one line.
func cellLabel(value string) string {
	value = strings.ReplaceAll(value, "<br>", " ")
	value = strings.ReplaceAll(value, "<br/>", " ")
	value = htmlTagRe.ReplaceAllString(value, " ")
	value = strings.ReplaceAll(value, "&nbsp;", " ")
	return oneLine(value)
}
