package catalog

import (
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-book-catalog/store"
	"github.com/uptrace/bun"
)

var (
	_ store.Filter = AuthorFilter{}
	_ store.Filter = CategoryFilter{}
	_ store.Filter = BookFilter{}
)

// AuthorFilter selects authors by exact match. Nil fields match everything.
type AuthorFilter struct {
	ID   *int64
	Name *string
}

func (f AuthorFilter) Criteria() []repository.SelectCriteria {
	var out []repository.SelectCriteria
	out = appendEq(out, "id", f.ID)
	out = appendEq(out, "name", f.Name)
	return out
}

// CategoryFilter selects categories by exact match. Nil fields match everything.
type CategoryFilter struct {
	ID   *int64
	Name *string
}

func (f CategoryFilter) Criteria() []repository.SelectCriteria {
	var out []repository.SelectCriteria
	out = appendEq(out, "id", f.ID)
	out = appendEq(out, "name", f.Name)
	return out
}

// BookFilter selects books. All set fields must hold. PublishedOn matches the calendar
// date of the value as given, read in its own location; the time of day is ignored.
type BookFilter struct {
	AuthorID    *int64
	CategoryID  *int64
	Title       *string
	ISBN        *string
	IsRead      *bool
	PublishedOn *time.Time
}

func (f BookFilter) Criteria() []repository.SelectCriteria {
	var out []repository.SelectCriteria
	out = appendEq(out, "author_id", f.AuthorID)
	out = appendEq(out, "category_id", f.CategoryID)
	out = appendEq(out, "title", f.Title)
	out = appendEq(out, "isbn", f.ISBN)
	out = appendEq(out, "is_read", f.IsRead)

	if f.PublishedOn != nil {
		from, to := dayRange(*f.PublishedOn)
		out = append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("?TableAlias.published_at >= ?", from).
				Where("?TableAlias.published_at < ?", to)
		})
	}
	return out
}

// dayRange returns the half open UTC interval covering the calendar date of t in t's
// own location.
func dayRange(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 0, 1)
}

func appendEq[V any](out []repository.SelectCriteria, column string, value *V) []repository.SelectCriteria {
	if value == nil {
		return out
	}
	v := *value
	return append(out, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.? = ?", bun.Ident(column), v)
	})
}
