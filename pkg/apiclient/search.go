package apiclient

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/markhive/markhive/pkg/search"
)

// SearchParams mirrors the GET /api/search query parameters.
type SearchParams struct {
	Keyword   string
	FileTypes []string
	MtimeFrom string
	MtimeTo   string
	SortBy    string
	SortOrder string
	Page      int
	PerPage   int
}

// Search runs a keyword query against the index.
func (c *Client) Search(p SearchParams) (*search.Results, error) {
	q := url.Values{}
	q.Set("q", p.Keyword)
	if len(p.FileTypes) > 0 {
		q.Set("file_types", strings.Join(p.FileTypes, ","))
	}
	if p.MtimeFrom != "" {
		q.Set("mtime_from", p.MtimeFrom)
	}
	if p.MtimeTo != "" {
		q.Set("mtime_to", p.MtimeTo)
	}
	if p.SortBy != "" {
		q.Set("sort_by", p.SortBy)
	}
	if p.SortOrder != "" {
		q.Set("sort_order", p.SortOrder)
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	}

	var results search.Results
	if err := c.get("/api/search?"+q.Encode(), &results); err != nil {
		return nil, err
	}
	return &results, nil
}
