package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/uptrace/bun"
)

// Catalog is the seed document. Books point at authors and categories by Ref.
type Catalog struct {
	Authors    []SeedAuthor   `json:"authors"`
	Categories []SeedCategory `json:"categories"`
	Books      []SeedBook     `json:"books"`
}

type SeedAuthor struct {
	Ref string `json:"ref"`
	model.AuthorSet
}

type SeedCategory struct {
	Ref string `json:"ref"`
	model.CategorySet
}

type SeedBook struct {
	Title       string    `json:"title"`
	ISBN        *string   `json:"isbn"`
	PublishedAt time.Time `json:"publishedAt"`
	Author      string    `json:"author"`
	Category    *string   `json:"category"`
	IsRead      bool      `json:"isRead"`
}

// SeedResult reports how many rows were inserted per table.
type SeedResult struct {
	Authors    int
	Categories int
	Books      int
}

// Seed decodes a Catalog from r and inserts it in a single transaction. Nothing is
// written when any entry is invalid or a reference does not resolve.
func Seed(ctx context.Context, db *bun.DB, r io.Reader) (SeedResult, error) {
	var doc Catalog
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return SeedResult{}, fmt.Errorf("decode seed catalog: %w", err)
	}
	return SeedCatalog(ctx, db, doc, time.Now().UTC())
}

// SeedCatalog inserts doc with every CreatedAt set to now.
func SeedCatalog(ctx context.Context, db *bun.DB, doc Catalog, now time.Time) (SeedResult, error) {
	authors := make([]*model.Author, 0, len(doc.Authors))
	for i, a := range doc.Authors {
		if err := a.Validate(); err != nil {
			return SeedResult{}, fmt.Errorf("author %d (%s): %w", i, a.Ref, err)
		}
		e := a.Entity()
		e.MarkCreated(now)
		authors = append(authors, e)
	}

	categories := make([]*model.Category, 0, len(doc.Categories))
	for i, c := range doc.Categories {
		if err := c.Validate(); err != nil {
			return SeedResult{}, fmt.Errorf("category %d (%s): %w", i, c.Ref, err)
		}
		e := c.Entity()
		e.MarkCreated(now)
		categories = append(categories, e)
	}

	err := db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		authorIDs := make(map[string]int64, len(authors))
		for i, a := range authors {
			if _, err := tx.NewInsert().Model(a).Exec(ctx); err != nil {
				return fmt.Errorf("insert author %d: %w", i, err)
			}
			authorIDs[doc.Authors[i].Ref] = a.ID
		}

		categoryIDs := make(map[string]int64, len(categories))
		for i, c := range categories {
			if _, err := tx.NewInsert().Model(c).Exec(ctx); err != nil {
				return fmt.Errorf("insert category %d: %w", i, err)
			}
			categoryIDs[doc.Categories[i].Ref] = c.ID
		}

		for i, b := range doc.Books {
			set, err := b.resolve(authorIDs, categoryIDs)
			if err != nil {
				return fmt.Errorf("book %d: %w", i, err)
			}
			if err := set.Validate(); err != nil {
				return fmt.Errorf("book %d: %w", i, err)
			}
			book := set.Entity()
			book.MarkCreated(now)
			if _, err := tx.NewInsert().Model(book).Exec(ctx); err != nil {
				return fmt.Errorf("insert book %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}

	return SeedResult{Authors: len(authors), Categories: len(categories), Books: len(doc.Books)}, nil
}

func (b SeedBook) resolve(authors, categories map[string]int64) (model.BookSet, error) {
	authorID, ok := authors[b.Author]
	if !ok {
		return model.BookSet{}, fmt.Errorf("unknown author ref %q", b.Author)
	}

	set := model.BookSet{
		Title:       b.Title,
		ISBN:        b.ISBN,
		PublishedAt: b.PublishedAt,
		AuthorID:    authorID,
		IsRead:      b.IsRead,
	}
	if b.Category != nil {
		categoryID, ok := categories[*b.Category]
		if !ok {
			return model.BookSet{}, fmt.Errorf("unknown category ref %q", *b.Category)
		}
		set.CategoryID = &categoryID
	}
	return set, nil
}
