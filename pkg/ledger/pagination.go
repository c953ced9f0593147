package ledger

import (
	"fmt"
	"strconv"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest is a parsed, validated page/limit pair.
type PageRequest struct {
	Page  int
	Limit int
}

func (pr PageRequest) Offset() int { return (pr.Page - 1) * pr.Limit }

// Pagination is the listing envelope returned alongside paginated data.
type Pagination struct {
	CurrentPage     int   `json:"currentPage"`
	TotalPages      int   `json:"totalPages"`
	TotalItems      int64 `json:"totalItems"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// ParsePageRequest validates query-string page/limit values. Empty or zero
// values fall back to the defaults; anything that does not parse to a
// non-negative integer is rejected with ErrInvalidArgument rather than
// silently coerced.
func ParsePageRequest(pageStr, limitStr string) (PageRequest, error) {
	page, err := parsePositive(pageStr, DefaultPage)
	if err != nil {
		return PageRequest{}, fmt.Errorf("%w: page %q", ErrInvalidArgument, pageStr)
	}
	limit, err := parsePositive(limitStr, DefaultLimit)
	if err != nil {
		return PageRequest{}, fmt.Errorf("%w: limit %q", ErrInvalidArgument, limitStr)
	}
	return PageRequest{Page: page, Limit: limit}, nil
}

func parsePositive(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, ErrInvalidArgument
	}
	if v == 0 {
		return def, nil
	}
	return v, nil
}

// NewPagination computes the envelope: totalPages = ceil(total/limit).
func NewPagination(pr PageRequest, total int64) Pagination {
	totalPages := int((total + int64(pr.Limit) - 1) / int64(pr.Limit))
	return Pagination{
		CurrentPage:     pr.Page,
		TotalPages:      totalPages,
		TotalItems:      total,
		ItemsPerPage:    pr.Limit,
		HasNextPage:     pr.Page < totalPages,
		HasPreviousPage: pr.Page > 1,
	}
}
