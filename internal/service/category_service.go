package service

import (
	"context"
	"fmt"

	"github.com/alphaexam/alphaexam-backend/internal/model"
	"github.com/alphaexam/alphaexam-backend/internal/repository"
)

// CategoryService handles exam categories.
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
}

func NewCategoryService(categoryRepo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

func (s *CategoryService) List(ctx context.Context) ([]model.ExamCategory, error) {
	return s.categoryRepo.List(ctx)
}

func (s *CategoryService) Create(ctx context.Context, req *model.CreateCategoryRequest) (*model.ExamCategory, error) {
	c := &model.ExamCategory{Name: req.Name, Slug: req.Slug}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		if repository.IsUniqueViolation(err, "") {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}
