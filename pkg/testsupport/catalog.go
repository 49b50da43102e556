package testsupport

import (
	"time"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/store"
)

// CatalogFixture is the path of the shared seed catalog, relative to this package.
const CatalogFixture = "testdata/catalog.json"

// SmallCatalog returns a catalog with two authors, one category and three books.
// Ids are assigned in order: authors 1-2, category 1, books 1-3.
func SmallCatalog() store.Catalog {
	computing := "computing"
	isbn := "111"
	return store.Catalog{
		Authors: []store.SeedAuthor{
			{Ref: "ada", AuthorSet: model.AuthorSet{Name: "Ada"}},
			{Ref: "grace", AuthorSet: model.AuthorSet{Name: "Grace"}},
		},
		Categories: []store.SeedCategory{
			{Ref: computing, CategorySet: model.CategorySet{Name: "Computing"}},
		},
		Books: []store.SeedBook{
			{Title: "X", ISBN: &isbn, PublishedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), Author: "ada", Category: &computing},
			{Title: "Y", PublishedAt: time.Date(2020, 1, 1, 23, 30, 0, 0, time.UTC), Author: "ada", IsRead: true},
			{Title: "Z", PublishedAt: time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), Author: "grace", IsRead: true},
		},
	}
}
