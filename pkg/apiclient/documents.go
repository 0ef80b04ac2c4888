package apiclient

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/markhive/markhive/pkg/models"
)

// Document is a document as returned by the API, including the converted
// markdown body.
type Document struct {
	models.Document
	MarkdownContent *string `json:"markdown_content"`
}

// GetDocument fetches one document by id.
func (c *Client) GetDocument(id uint) (*Document, error) {
	var doc Document
	if err := c.get(fmt.Sprintf("/api/documents/%d", id), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// RetryDocument re-runs conversion for a failed document and returns it with
// its new outcome.
func (c *Client) RetryDocument(id uint) (*Document, error) {
	var doc Document
	if err := c.post(fmt.Sprintf("/api/documents/%d/retry", id), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// OrphanFilter narrows an orphan listing.
type OrphanFilter struct {
	Folder   string
	FileType string
	Keyword  string
	Page     int
	PerPage  int
}

// OrphanPage is one page of orphaned documents.
type OrphanPage struct {
	Documents []models.Document `json:"documents"`
	Total     int64             `json:"total"`
	Page      int               `json:"page"`
	PerPage   int               `json:"per_page"`
}

// ListOrphans pages through documents whose path is no longer under the
// filter's folder.
func (c *Client) ListOrphans(f OrphanFilter) (*OrphanPage, error) {
	q := url.Values{}
	q.Set("folder", f.Folder)
	if f.FileType != "" {
		q.Set("file_type", f.FileType)
	}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(f.PerPage))
	}

	var page OrphanPage
	if err := c.get("/api/cleanup/orphans?"+q.Encode(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteDocuments bulk-deletes documents by id and returns how many rows
// actually went away.
func (c *Client) DeleteDocuments(ids []uint) (int64, error) {
	var data struct {
		Deleted int64 `json:"deleted"`
	}
	body := map[string]any{"ids": ids}
	if err := c.post("/api/cleanup/delete", body, &data); err != nil {
		return 0, err
	}
	return data.Deleted, nil
}
