package pagination

import (
	"net/url"
	"strconv"
)

// PageRequest is a client's window into a list: a page, a page size, and an
// optional search term.
type PageRequest struct {
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Search   *string `json:"search,omitempty"`
}

// Normalize clamps the request into the configured bounds.
func (r *PageRequest) Normalize(cfg Config) {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = cfg.DefaultPageSize
	}
	if r.PageSize > cfg.MaxPageSize {
		r.PageSize = cfg.MaxPageSize
	}
}

// Offset returns how many records the window skips.
func (r *PageRequest) Offset() int {
	return (r.Page - 1) * r.PageSize
}

// SearchTerm returns the search string, or "" when none was provided.
func (r *PageRequest) SearchTerm() string {
	if r.Search == nil {
		return ""
	}
	return *r.Search
}

// PageRequestFromQuery reads page, page_size, and search from URL query
// values and returns a normalized request.
func PageRequestFromQuery(values url.Values, cfg Config) PageRequest {
	page, _ := strconv.Atoi(values.Get("page"))
	pageSize, _ := strconv.Atoi(values.Get("page_size"))

	var search *string
	if s := values.Get("search"); s != "" {
		search = &s
	}

	req := PageRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   search,
	}

	req.Normalize(cfg)
	return req
}

// PageResult holds one page of data with its paging metadata.
type PageResult[T any] struct {
	Data       []T `json:"data"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}

// NewPageResult wraps a page of data, computing total pages. A nil data
// slice becomes empty so the JSON field is always an array.
func NewPageResult[T any](data []T, total, page, pageSize int) PageResult[T] {
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if data == nil {
		data = []T{}
	}

	return PageResult[T]{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Paginate slices an in-memory collection into the requested page and wraps
// it with metadata. The request must be normalized; pages past the end yield
// an empty data slice.
func Paginate[T any](items []T, req PageRequest) PageResult[T] {
	total := len(items)

	start := min(req.Offset(), total)
	end := min(start+req.PageSize, total)

	return NewPageResult(items[start:end], total, req.Page, req.PageSize)
}
