package store_test

import (
	"context"
	"strings"
	"testing"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/pkg/testsupport"
	"github.com/goliatone/go-book-catalog/store"
)

func TestSeed_FromFixture(t *testing.T) {
	db := testsupport.OpenDB(t)
	ctx := context.Background()

	res, err := store.Seed(ctx, db, testsupport.FixtureReader(t, "../pkg/testsupport/"+testsupport.CatalogFixture))
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	if res.Authors != 3 || res.Categories != 2 || res.Books != 5 {
		t.Errorf("unexpected seed result %+v", res)
	}

	var books []*model.Book
	if err := db.NewSelect().Model(&books).Scan(ctx); err != nil {
		t.Fatalf("select failed: %v", err)
	}
	for _, b := range books {
		if b.CreatedAt.IsZero() || b.UpdatedAt != nil {
			t.Errorf("book %d: unexpected timestamps %v %v", b.ID, b.CreatedAt, b.UpdatedAt)
		}
	}
}

func TestSeed_RollsBackOnError(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "unknown author ref",
			doc: `{"authors":[{"ref":"a","name":"Ada"}],
				"books":[{"title":"X","publishedAt":"2020-01-01T00:00:00Z","author":"nobody"}]}`,
		},
		{
			name: "unknown category ref",
			doc: `{"authors":[{"ref":"a","name":"Ada"}],
				"books":[{"title":"X","publishedAt":"2020-01-01T00:00:00Z","author":"a","category":"nope"}]}`,
		},
		{
			name: "invalid book",
			doc: `{"authors":[{"ref":"a","name":"Ada"}],
				"books":[{"title":"  ","publishedAt":"2020-01-01T00:00:00Z","author":"a"}]}`,
		},
		{
			name: "duplicate isbn",
			doc: `{"authors":[{"ref":"a","name":"Ada"}],
				"books":[
					{"title":"X","isbn":"1","publishedAt":"2020-01-01T00:00:00Z","author":"a"},
					{"title":"Y","isbn":"1","publishedAt":"2020-01-01T00:00:00Z","author":"a"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testsupport.OpenDB(t)
			ctx := context.Background()

			if _, err := store.Seed(ctx, db, strings.NewReader(tt.doc)); err == nil {
				t.Fatal("expected seed error")
			}

			n, err := db.NewSelect().Model((*model.Author)(nil)).Count(ctx)
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if n != 0 {
				t.Errorf("expected rollback, found %d authors", n)
			}
		})
	}
}

func TestSeed_RejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed json", doc: `{"authors":`},
		{name: "unknown field", doc: `{"publishers":[]}`},
		{name: "invalid author", doc: `{"authors":[{"ref":"a","name":"Ada","bio":"abc"}]}`},
		{name: "invalid category", doc: `{"categories":[{"ref":"c","name":""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testsupport.OpenDB(t)
			if _, err := store.Seed(context.Background(), db, strings.NewReader(tt.doc)); err == nil {
				t.Error("expected seed error")
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := store.Open("oracle", "whatever"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}
