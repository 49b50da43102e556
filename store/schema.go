package store

import (
	"context"
	"fmt"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/uptrace/bun"
)

// CreateSchema creates the catalog tables. With reset the tables are dropped first,
// which wipes all data.
func CreateSchema(ctx context.Context, db *bun.DB, reset bool) error {
	if reset {
		for _, m := range []any{(*model.Book)(nil), (*model.Category)(nil), (*model.Author)(nil)} {
			if _, err := db.NewDropTable().Model(m).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
		}
	}

	if _, err := db.NewCreateTable().Model((*model.Author)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create authors: %w", err)
	}
	if _, err := db.NewCreateTable().Model((*model.Category)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create categories: %w", err)
	}

	_, err := db.NewCreateTable().
		Model((*model.Book)(nil)).
		IfNotExists().
		ForeignKey(`("author_id") REFERENCES "authors" ("id")`).
		ForeignKey(`("category_id") REFERENCES "categories" ("id")`).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create books: %w", err)
	}

	if _, err := db.NewCreateIndex().
		Model((*model.Book)(nil)).
		Index("books_author_id_idx").
		IfNotExists().
		Column("author_id").
		Exec(ctx); err != nil {
		return fmt.Errorf("create books index: %w", err)
	}

	return nil
}
