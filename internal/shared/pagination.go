package shared

import "math"

// DefaultPerPage is used when the caller does not pass a limit.
const DefaultPerPage = 50

// MaxPerPage caps the page size regardless of what the caller asks for.
const MaxPerPage = 100

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination normalizes page/perPage and computes listing metadata.
// Page is clamped to >= 1 and perPage to [1, MaxPerPage].
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PerPage
}
