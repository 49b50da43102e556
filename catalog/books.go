package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/service"
)

// BookService manages books. Writes check that referenced authors and categories exist
// and that the ISBN is not taken before anything is persisted.
type BookService struct {
	entities   *service.EntityService[*model.Book]
	authors    *service.EntityService[*model.Author]
	categories *service.EntityService[*model.Category]
}

// List returns one page of the books matching filter.
func (s *BookService) List(ctx context.Context, filter BookFilter, page, size *int) ([]*model.Book, error) {
	return s.entities.Find(ctx, filter, page, size)
}

// Get returns one book.
func (s *BookService) Get(ctx context.Context, id int64) (*model.Book, error) {
	return s.entities.GetByID(ctx, id)
}

// Create validates set, runs the reference and ISBN checks and stores a new book.
func (s *BookService) Create(ctx context.Context, set model.BookSet) (*model.Book, error) {
	if err := service.Validation(BookEntity, set.Validate()); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, &set.AuthorID, set.CategoryID); err != nil {
		return nil, err
	}
	if set.ISBN != nil {
		if err := s.checkISBN(ctx, *set.ISBN, 0); err != nil {
			return nil, err
		}
	}
	return s.entities.Create(ctx, set.Entity())
}

// Replace validates set and writes all of its fields onto the book. ISBN and CategoryID
// left nil keep their stored value.
func (s *BookService) Replace(ctx context.Context, id int64, set model.BookSet) (*model.Book, error) {
	if err := service.Validation(BookEntity, set.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, set.Patch())
}

// Update applies the fields present on patch.
func (s *BookService) Update(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	if err := service.Validation(BookEntity, patch.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, patch)
}

// Delete removes a book.
func (s *BookService) Delete(ctx context.Context, id int64) (int64, error) {
	book, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return 0, err
	}
	return s.entities.Delete(ctx, book)
}

func (s *BookService) update(ctx context.Context, id int64, patch model.BookPatch) (*model.Book, error) {
	original, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return nil, err
	}

	if err := s.checkReferences(ctx, patch.AuthorID, patch.CategoryID); err != nil {
		return nil, err
	}
	if patch.ISBN != nil && (original.ISBN == nil || *original.ISBN != *patch.ISBN) {
		if err := s.checkISBN(ctx, *patch.ISBN, id); err != nil {
			return nil, err
		}
	}
	return s.entities.Update(ctx, patch, original)
}

// checkReferences verifies the ids that are set. Nil ids are skipped.
func (s *BookService) checkReferences(ctx context.Context, authorID, categoryID *int64) error {
	if authorID != nil {
		if _, err := s.authors.GetByID(fresh(ctx), *authorID); err != nil {
			return missingReference(err, "authorId", AuthorEntity, *authorID)
		}
	}
	if categoryID != nil {
		if _, err := s.categories.GetByID(fresh(ctx), *categoryID); err != nil {
			return missingReference(err, "categoryId", CategoryEntity, *categoryID)
		}
	}
	return nil
}

// checkISBN fails with a conflict when a book other than self already uses isbn.
func (s *BookService) checkISBN(ctx context.Context, isbn string, self int64) error {
	page, size := 1, 2
	matches, err := s.entities.Find(fresh(ctx), BookFilter{ISBN: &isbn}, &page, &size)
	if err != nil {
		return err
	}
	for _, b := range matches {
		if b.ID != self {
			return service.Conflict(BookEntity, "isbn", fmt.Sprintf("a book with ISBN %q already exists", isbn))
		}
	}
	return nil
}

func missingReference(err error, field, entity string, id int64) error {
	if errors.Is(err, service.ErrNotFound) {
		return service.ReferentialIntegrity(BookEntity, field, fmt.Sprintf("%s with id %d does not exist", entity, id))
	}
	return err
}
