package handlers

import (
	"net/http"
	"strings"

	"github.com/markhive/markhive/pkg/search"
)

// SearchHandler serves keyword queries over the index.
type SearchHandler struct {
	svc *search.Service
}

// NewSearchHandler creates a new search handler. svc may be nil, in which
// case the endpoint reports unavailable.
func NewSearchHandler(svc *search.Service) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search handles GET /api/search.
//
// Query parameters:
//   - q (required): keyword matched against content and filename
//   - file_types: comma-separated extension list
//   - mtime_from, mtime_to: RFC3339 or YYYY-MM-DD bounds on file mtime
//   - sort_by: file_modified_time (default) or file_name
//   - sort_order: desc (default) or asc
//   - page, per_page: pagination (defaults 1, 20; per_page capped at 100)
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h.svc == nil {
		ServiceUnavailable(w, "search is not available")
		return
	}

	q := r.URL.Query()
	keyword := q.Get("q")
	if strings.TrimSpace(keyword) == "" {
		BadRequest(w, "q is required")
		return
	}

	mtimeFrom, err := parseDate(q.Get("mtime_from"), false)
	if err != nil {
		BadRequest(w, "invalid mtime_from")
		return
	}
	mtimeTo, err := parseDate(q.Get("mtime_to"), true)
	if err != nil {
		BadRequest(w, "invalid mtime_to")
		return
	}

	query := search.Query{
		Keyword:   keyword,
		FileTypes: splitCSV(q.Get("file_types")),
		MtimeFrom: mtimeFrom,
		MtimeTo:   mtimeTo,
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Page:      intParam(q.Get("page"), 1),
		PerPage:   intParam(q.Get("per_page"), search.DefaultPerPage),
	}

	results, err := h.svc.Search(r.Context(), query)
	if err != nil {
		InternalServerError(w, "Search failed")
		return
	}

	OK(w, results)
}

// splitCSV splits a comma-separated parameter into trimmed non-empty parts.
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
