package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/domain"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/idx"
)

var ErrCategoryNameTaken = errors.New("category name already in use")

// CategoryService manages transaction categories. Mutations are wrapped in
// audit decorators so every create/update/delete leaves a trail with its
// outcome, without the handlers having to remember to emit anything.
type CategoryService struct {
	Store store.Store
	Audit *audit.Recorder
}

func (s *CategoryService) Create(ctx context.Context, c domain.Category) (domain.Category, error) {
	c.ID = idx.New().String()
	if c.Color == "" {
		c.Color = "#6366f1"
	}

	op := s.Audit.Wrap(audit.Entry{
		Action:       "category_created",
		ResourceType: "category",
		ResourceID:   c.ID,
		Description:  c.Name,
	}, func(ctx context.Context) error {
		if err := s.Store.Categories().CreateCategory(ctx, c); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrCategoryNameTaken
			}
			return fmt.Errorf("failed to create category: %w", err)
		}
		return nil
	})
	if err := op(ctx); err != nil {
		return domain.Category{}, err
	}
	return c, nil
}

func (s *CategoryService) Get(ctx context.Context, id string) (domain.Category, error) {
	return s.Store.Categories().GetCategoryByID(ctx, id)
}

func (s *CategoryService) List(ctx context.Context) ([]domain.Category, error) {
	return s.Store.Categories().ListCategories(ctx)
}

func (s *CategoryService) Update(ctx context.Context, c domain.Category) error {
	op := s.Audit.Wrap(audit.Entry{
		Action:       "category_updated",
		ResourceType: "category",
		ResourceID:   c.ID,
		Description:  c.Name,
	}, func(ctx context.Context) error {
		if err := s.Store.Categories().UpdateCategory(ctx, c); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrCategoryNameTaken
			}
			return err
		}
		return nil
	})
	return op(ctx)
}

func (s *CategoryService) Delete(ctx context.Context, id string) error {
	op := s.Audit.Wrap(audit.Entry{
		Action:       "category_deleted",
		ResourceType: "category",
		ResourceID:   id,
	}, func(ctx context.Context) error {
		return s.Store.Categories().DeleteCategory(ctx, id)
	})
	return op(ctx)
}
