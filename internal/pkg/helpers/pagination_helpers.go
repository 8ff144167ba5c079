package helpers

import (
	"github.com/yigit/campuswell/internal/app/models/dto"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ClampPage normalizes an offset page request. A non positive limit falls back to def,
// limits above max are capped and negative offsets become zero.
func ClampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// NewPaginationInfo creates a standard PaginationInfo DTO. returned is the number of
// items on the current page.
func NewPaginationInfo(total, limit, offset, returned int) dto.PaginationInfo {
	return dto.PaginationInfo{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+returned < total,
	}
}
