package pagination

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize is the standard page size when a size is not provided.
	DefaultPageSize = 12
	// MaxPageSize caps how many rows any listing can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
	Query    map[string]string
}

// Page is the normalized listing contract shared by products, posts and reviews.
type Page[T any] struct {
	Items        []T  `json:"items"`
	NextPage     *int `json:"next_page"`
	PreviousPage *int `json:"previous_page"`
	TotalCount   int  `json:"total_count"`
}

// HasMore reports whether a next page exists.
func (p Page[T]) HasMore() bool {
	return p.NextPage != nil
}

// Empty returns a page with no items and no neighbours.
func Empty[T any]() Page[T] {
	return Page[T]{Items: []T{}}
}

// NormalizePage enforces a 1-based page number.
func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// NormalizePageSize enforces the configured default and maximum sizes.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Apply writes page, page_size and non-empty query values onto the URL query.
func (p Params) Apply(values url.Values) {
	values.Set("page", strconv.Itoa(NormalizePage(p.Page)))
	values.Set("page_size", strconv.Itoa(NormalizePageSize(p.PageSize)))
	for key, value := range p.Query {
		if value == "" {
			continue
		}
		values.Set(key, value)
	}
}

// HasFilters reports whether any query value is set.
func (p Params) HasFilters() bool {
	for _, value := range p.Query {
		if value != "" {
			return true
		}
	}
	return false
}

// ParsePageNumber extracts the page query parameter from an absolute or relative URL.
// Missing, empty or malformed values yield nil.
func ParsePageNumber(raw string) *int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil
	}
	pageParam := parsed.Query().Get("page")
	if pageParam == "" {
		return nil
	}
	page, err := strconv.Atoi(pageParam)
	if err != nil {
		return nil
	}
	return &page
}

type envelope[T any] struct {
	Results  *[]T    `json:"results"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Count    *int    `json:"count"`
}

// Decode normalizes a backend listing body. It accepts either the
// {count, next, previous, results} envelope or a bare JSON array, which is treated
// as one complete page.
func Decode[T any](body []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return Empty[T](), fmt.Errorf("empty listing body")
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Empty[T](), fmt.Errorf("decode listing array: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return Page[T]{Items: items, TotalCount: len(items)}, nil
	}

	var env envelope[T]
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return Empty[T](), fmt.Errorf("decode listing envelope: %w", err)
	}

	items := []T{}
	if env.Results != nil && *env.Results != nil {
		items = *env.Results
	}

	page := Page[T]{Items: items, TotalCount: len(items)}
	if env.Count != nil {
		page.TotalCount = *env.Count
	}
	if env.Next != nil {
		page.NextPage = ParsePageNumber(*env.Next)
	}
	if env.Previous != nil {
		page.PreviousPage = ParsePageNumber(*env.Previous)
	}
	return page, nil
}
