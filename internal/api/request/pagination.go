package request

import (
	"net/http"
	"strconv"
)

// Pagination holds the cursor-paging query parameters.
type Pagination struct {
	Limit  int
	Cursor string
}

// Listing endpoints clamp to MaxLimit regardless of what the caller asks
// for.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParsePagination reads limit and cursor from the query string. Absent or
// unparseable values fall back to the defaults.
func ParsePagination(r *http.Request) Pagination {
	p := Pagination{
		Limit:  DefaultLimit,
		Cursor: r.URL.Query().Get("cursor"),
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			p.Limit = limit
		}
	}

	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}

	return p
}
