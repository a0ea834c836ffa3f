// Package utils provides small helpers shared across layers. Nothing in here
// knows about boosts, pricing, or HTTP.
package utils

import "strconv"

// AtoiDefault converts s to an int, returning def when s is empty or not a
// valid integer. Used for query parameters like page and page_size.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// TotalPages returns the number of pages needed to hold total items at
// pageSize items per page. Zero totals yield zero pages; a non-positive
// pageSize is treated as one item per page.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 {
		return 0
	}
	if pageSize < 1 {
		pageSize = 1
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
