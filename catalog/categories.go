package catalog

import (
	"context"
	"fmt"

	"github.com/goliatone/go-book-catalog/model"
	"github.com/goliatone/go-book-catalog/service"
)

// CategoryService manages categories.
type CategoryService struct {
	entities *service.EntityService[*model.Category]
	books    *service.EntityService[*model.Book]
}

func (s *CategoryService) List(ctx context.Context, filter CategoryFilter, page, size *int) ([]*model.Category, error) {
	return s.entities.Find(ctx, filter, page, size)
}

func (s *CategoryService) Get(ctx context.Context, id int64) (*model.Category, error) {
	return s.entities.GetByID(ctx, id)
}

func (s *CategoryService) Create(ctx context.Context, set model.CategorySet) (*model.Category, error) {
	if err := service.Validation(CategoryEntity, set.Validate()); err != nil {
		return nil, err
	}
	return s.entities.Create(ctx, set.Entity())
}

func (s *CategoryService) Replace(ctx context.Context, id int64, set model.CategorySet) (*model.Category, error) {
	if err := service.Validation(CategoryEntity, set.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, set.Patch())
}

func (s *CategoryService) Update(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error) {
	if err := service.Validation(CategoryEntity, patch.Validate()); err != nil {
		return nil, err
	}
	return s.update(ctx, id, patch)
}

// Delete removes a category that no book refers to.
func (s *CategoryService) Delete(ctx context.Context, id int64) (int64, error) {
	category, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return 0, err
	}

	used, err := referenced(ctx, s.books, BookFilter{CategoryID: &id})
	if err != nil {
		return 0, err
	}
	if used {
		return 0, service.Conflict(CategoryEntity, "id",
			fmt.Sprintf("category with id %d is referenced by one or more books", id))
	}
	return s.entities.Delete(ctx, category)
}

func (s *CategoryService) update(ctx context.Context, id int64, patch model.CategoryPatch) (*model.Category, error) {
	original, err := s.entities.GetByID(fresh(ctx), id)
	if err != nil {
		return nil, err
	}
	return s.entities.Update(ctx, patch, original)
}
