package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// paramError is a malformed query or path parameter.
type paramError struct {
	Name    string
	Message string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Message)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, &paramError{Name: "id", Message: "id must be a positive integer"}
	}
	return id, nil
}

func queryInt(q url.Values, name string) (*int, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, &paramError{Name: name, Message: name + " must be an integer"}
	}
	return &v, nil
}

func queryInt64(q url.Values, name string) (*int64, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &paramError{Name: name, Message: name + " must be an integer"}
	}
	return &v, nil
}

func queryString(q url.Values, name string) *string {
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}

func queryBool(q url.Values, name string) (*bool, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &paramError{Name: name, Message: name + " must be true or false"}
	}
	return &v, nil
}

// queryDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp and returns
// midnight UTC of the date as written; a timestamp's offset does not move it to another day.
func queryDate(q url.Values, name string) (*time.Time, error) {
	raw := q.Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if v, err := time.Parse(layout, raw); err == nil {
			y, m, d := v.Date()
			day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
			return &day, nil
		}
	}
	return nil, &paramError{Name: name, Message: name + " must be a date (YYYY-MM-DD)"}
}

// pageParams reads page and pageSize and enforces the boundary limits.
func pageParams(q url.Values, maxPageSize int) (page, size *int, err error) {
	if page, err = queryInt(q, "page"); err != nil {
		return nil, nil, err
	}
	if page != nil && *page < 1 {
		return nil, nil, &paramError{Name: "page", Message: "page must be at least 1"}
	}
	if size, err = queryInt(q, "pageSize"); err != nil {
		return nil, nil, err
	}
	if size != nil && (*size < 1 || *size > maxPageSize) {
		return nil, nil, &paramError{Name: "pageSize", Message: fmt.Sprintf("pageSize must be between 1 and %d", maxPageSize)}
	}
	return page, size, nil
}
