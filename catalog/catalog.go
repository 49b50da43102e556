package catalog

import (
	"context"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/repositorycache"
	"github.com/goliatone/go-book-catalog/service"
	"github.com/goliatone/go-book-catalog/store"
)

// Entity names used in errors, span names and log fields.
const (
	AuthorEntity   = "author"
	CategoryEntity = "category"
	BookEntity     = "book"
)

// Repositories groups the storage collaborators of the three entity types.
type Repositories struct {
	Authors    store.Repository[*model.Author]
	Categories store.Repository[*model.Category]
	Books      store.Repository[*model.Book]
}

// Catalog exposes the per-entity services.
type Catalog struct {
	Authors    *AuthorService
	Categories *CategoryService
	Books      *BookService
}

// New builds the catalog services on repos. opts apply to every entity service.
func New(repos Repositories, opts ...service.Option) *Catalog {
	authors := service.New[*model.Author](AuthorEntity, repos.Authors, opts...)
	categories := service.New[*model.Category](CategoryEntity, repos.Categories, opts...)
	books := service.New[*model.Book](BookEntity, repos.Books, opts...)

	return &Catalog{
		Authors:    &AuthorService{entities: authors, books: books},
		Categories: &CategoryService{entities: categories, books: books},
		Books:      &BookService{entities: books, authors: authors, categories: categories},
	}
}

// fresh returns a context whose reads skip the cache. Checks that gate a write use it.
func fresh(ctx context.Context) context.Context {
	return repositorycache.WithoutCache(ctx)
}

// referenced reports whether any book matches filter.
func referenced(ctx context.Context, books *service.EntityService[*model.Book], filter BookFilter) (bool, error) {
	n, err := books.Count(fresh(ctx), filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
