package model

import (
	"time"

	"github.com/uptrace/bun"
)

var (
	_ Entity[*Book] = (*Book)(nil)
	_ Patch[*Book]  = BookPatch{}
)

// Book is the stored shape of a book.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b" json:"-" msgpack:"-"`
	Base

	Title       string    `bun:"title,notnull" json:"title"`
	ISBN        *string   `bun:"isbn,unique" json:"isbn,omitempty"`
	PublishedAt time.Time `bun:"published_at,notnull" json:"publishedAt"`
	AuthorID    int64     `bun:"author_id,notnull" json:"authorId"`
	CategoryID  *int64    `bun:"category_id" json:"categoryId,omitempty"`
	IsRead      bool      `bun:"is_read,notnull,default:false" json:"isRead"`
}

// Clone returns a deep copy safe to mutate.
func (b *Book) Clone() *Book {
	out := *b
	out.Base = b.Base.clone()
	out.ISBN = cloneString(b.ISBN)
	out.CategoryID = cloneInt64(b.CategoryID)
	return &out
}

// BookSet is the create/replace shape of a book.
type BookSet struct {
	Title       string    `json:"title"`
	ISBN        *string   `json:"isbn"`
	PublishedAt time.Time `json:"publishedAt"`
	AuthorID    int64     `json:"authorId"`
	CategoryID  *int64    `json:"categoryId"`
	IsRead      bool      `json:"isRead"`
}

// Entity builds a new, unsaved Book.
func (s BookSet) Entity() *Book {
	return &Book{
		Title:       s.Title,
		ISBN:        cloneString(s.ISBN),
		PublishedAt: s.PublishedAt.UTC(),
		AuthorID:    s.AuthorID,
		CategoryID:  cloneInt64(s.CategoryID),
		IsRead:      s.IsRead,
	}
}

// Patch converts the set shape into a patch. Title, PublishedAt, AuthorID and IsRead are
// required on the set shape and therefore always present; ISBN and CategoryID only when given.
func (s BookSet) Patch() BookPatch {
	title := s.Title
	published := s.PublishedAt.UTC()
	author := s.AuthorID
	read := s.IsRead
	return BookPatch{
		Title:       &title,
		ISBN:        cloneString(s.ISBN),
		PublishedAt: &published,
		AuthorID:    &author,
		CategoryID:  cloneInt64(s.CategoryID),
		IsRead:      &read,
	}
}

// BookPatch is the partial update shape of a book.
type BookPatch struct {
	Title       *string    `json:"title"`
	ISBN        *string    `json:"isbn"`
	PublishedAt *time.Time `json:"publishedAt"`
	AuthorID    *int64     `json:"authorId"`
	CategoryID  *int64     `json:"categoryId"`
	IsRead      *bool      `json:"isRead"`
}

// ApplyTo writes every present field onto target.
func (p BookPatch) ApplyTo(target *Book) {
	if p.Title != nil {
		target.Title = *p.Title
	}
	if p.ISBN != nil {
		target.ISBN = cloneString(p.ISBN)
	}
	if p.PublishedAt != nil {
		target.PublishedAt = p.PublishedAt.UTC()
	}
	if p.AuthorID != nil {
		target.AuthorID = *p.AuthorID
	}
	if p.CategoryID != nil {
		target.CategoryID = cloneInt64(p.CategoryID)
	}
	if p.IsRead != nil {
		target.IsRead = *p.IsRead
	}
}
