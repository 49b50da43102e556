package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/service"
)

// AuthorService manages authors.
type AuthorService struct {
	entities *service.EntityService[*model.Author]
	books    *service.EntityService[*model.Book]
}

// List returns one page of the authors matching filter.
func (s *AuthorService) List(ctx context.Context, filter AuthorFilter, page, size *int) ([]*model.Author, error) {
	return s.entities.Find(ctx, filter, page, size)
}

// Get returns one author.
func (s *AuthorService) Get(ctx context.Context, id int64) (*model.Author, error) {
	return s.entities.GetByID(ctx, id)
}

// Create validates set and stores a new author.
func (s *AuthorService) Create(ctx context.Context, set model.AuthorSet) (*model.Author, error) {
	if err := service.Validation(AuthorEntity, set.Validate()); err != nil {
		return nil, err
	}
	return s.entities.Create(ctx, set.Entity())
}

// Replace validates set and writes all of its fields onto the author. Optional fields left
// nil keep their stored value.
func (s *AuthorService) Replace(ctx context.Context, id int64, set model.AuthorSet) (*model.Author, error) {
	if err := service.Validation(AuthorEntity, set.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, set.Patch())
}

// Update applies the fields present on patch.
func (s *AuthorService) Update(ctx context.Context, id int64, patch model.AuthorPatch) (*model.Author, error) {
	if err := service.Validation(AuthorEntity, patch.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, patch)
}

// Delete removes an author that no book refers to.
func (s *AuthorService) Delete(ctx context.Context, id int64) (int64, error) {
	author, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return 0, err
	}

	used, err := referenced(ctx, s.books, BookFilter{AuthorID: &id})
	if err != nil {
		return 0, err
	}
	if used {
		return 0, service.Conflict(AuthorEntity, "id",
			fmt.Sprintf("author with id %d is referenced by one or more books", id))
	}
	return s.entities.Delete(ctx, author)
}

func (s *AuthorService) update(ctx context.Context, id int64, patch model.AuthorPatch) (*model.Author, error) {
	original, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return nil, err
	}
	return s.entities.Update(ctx, patch, original)
}
