package service

import (
	"context"
	"strings"

	"classblog/internal/content"
	"classblog/internal/models"
	"classblog/internal/repository"
	"classblog/internal/validation"
)

// CategoriesPath is where denied category actions send the caller.
const CategoriesPath = "/api/categories"

type TaxonomyService struct {
	taxonomyRepo repository.TaxonomyRepository
}

type CreateCategoryInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	Slug        *string `json:"slug" validate:"omitempty,max=255,slug"`
	Description string  `json:"description" validate:"max=1000"`
}

func NewTaxonomyService(taxonomyRepo repository.TaxonomyRepository) *TaxonomyService {
	return &TaxonomyService{taxonomyRepo: taxonomyRepo}
}

func (s *TaxonomyService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.taxonomyRepo.ListCategories(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (s *TaxonomyService) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := s.taxonomyRepo.ListTags(ctx)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	return tags, nil
}

// CreateCategory adds a category. Only moderators may create categories.
func (s *TaxonomyService) CreateCategory(ctx context.Context, actor *models.User, in CreateCategoryInput) (*models.Category, error) {
	if !actor.IsModerator() {
		var actorID uint
		if actor != nil {
			actorID = actor.ID
		}
		return nil, deny(ctx, "create_category", actorID,
			"You are not authorized to create categories.", CategoriesPath)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	slug := content.Slugify(in.Name)
	if in.Slug != nil && *in.Slug != "" {
		slug = *in.Slug
	}
	if slug == "" {
		return nil, models.NewFieldValidationError(map[string]string{
			"slug": "The slug field is required.",
		})
	}

	category := &models.Category{
		Name:        in.Name,
		Slug:        slug,
		Description: in.Description,
	}
	if err := s.taxonomyRepo.CreateCategory(ctx, category); err != nil {
		if models.HasCode(err, models.CodeValidation) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}
	return category, nil
}
