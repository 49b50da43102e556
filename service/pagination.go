package service

import "math"

// Pagination defaults applied when the caller leaves page or size unset.
const (
	DefaultPage     = 1
	DefaultPageSize = 25
)

// Normalize turns optional page and size values into a usable pair. Missing values take the
// defaults and anything below 1 is raised to 1. There is no upper bound here.
func Normalize(page, size *int) (int, int) {
	p, s := DefaultPage, DefaultPageSize
	if page != nil {
		p = max(*page, 1)
	}
	if size != nil {
		s = max(*size, 1)
	}
	return p, s
}

// Window converts a normalized page and size into limit and offset. ok is false when the
// offset does not fit in an int; no row can live that far out.
func Window(page, size int) (limit, offset int, ok bool) {
	if page-1 > math.MaxInt/size {
		return size, 0, false
	}
	return size, (page - 1) * size, true
}
