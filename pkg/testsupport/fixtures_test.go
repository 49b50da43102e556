package testsupport

import (
	"context"
	"io"
	"testing"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/store"
)

func TestReadFixture(t *testing.T) {
	path := WriteTempFile(t, "note.txt", []byte("first edition"))

	if got := string(ReadFixture(t, path)); got != "first edition" {
		t.Errorf("expected %q, got %q", "first edition", got)
	}

	data, err := io.ReadAll(FixtureReader(t, path))
	if err != nil {
		t.Fatalf("failed to read: %v", err)
	}
	if string(data) != "first edition" {
		t.Errorf("reader returned %q", data)
	}
}

func TestLoadCatalog(t *testing.T) {
	doc := LoadCatalog(t, CatalogFixture)
	if len(doc.Authors) != 3 || len(doc.Categories) != 2 || len(doc.Books) != 5 {
		t.Errorf("unexpected catalog sizes: %d authors, %d categories, %d books",
			len(doc.Authors), len(doc.Categories), len(doc.Books))
	}
}

func TestOpenDB_IsolatedDatabases(t *testing.T) {
	ctx := context.Background()
	first := OpenDB(t)
	second := OpenDB(t)

	SeedDB(t, first, SmallCatalog())

	n, err := second.NewSelect().Model((*model.Author)(nil)).Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected an empty second database, got %d authors", n)
	}
}

func TestSeedDB_SmallCatalog(t *testing.T) {
	db := OpenDB(t)
	res := SeedDB(t, db, SmallCatalog())

	if res != (store.SeedResult{Authors: 2, Categories: 1, Books: 3}) {
		t.Errorf("unexpected seed result %+v", res)
	}

	book := new(model.Book)
	if err := db.NewSelect().Model(book).Where("?TableAlias.id = ?", 1).Scan(context.Background()); err != nil {
		t.Fatalf("select book: %v", err)
	}
	if book.AuthorID != 1 || book.CategoryID == nil || *book.CategoryID != 1 {
		t.Errorf("references not resolved: %+v", book)
	}
}

func TestSeedDBFromFixture(t *testing.T) {
	db := OpenDB(t)
	res := SeedDBFromFixture(t, db, CatalogFixture)

	if res.Authors != 3 || res.Categories != 2 || res.Books != 5 {
		t.Errorf("unexpected seed result %+v", res)
	}
}
