package repository

import (
	"context"

	"classblog/internal/models"

	"gorm.io/gorm"
)

// TaxonomyRepository persists categories and tags.
type TaxonomyRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	CategoriesByIDs(ctx context.Context, ids []uint) ([]models.Category, error)
	// FirstOrCreateTag returns the tag with slug, creating it named name when absent.
	FirstOrCreateTag(ctx context.Context, name, slug string) (*models.Tag, error)
}

type taxonomyRepository struct {
	db *gorm.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository
func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

func (r *taxonomyRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error
	return categories, err
}

func (r *taxonomyRepository) ListTags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tags).Error
	return tags, err
}

func (r *taxonomyRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewFieldValidationError(map[string]string{
				"slug": "The slug has already been taken.",
			})
		}
		return err
	}
	return nil
}

func (r *taxonomyRepository) CategoriesByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var categories []models.Category
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error
	return categories, err
}

func (r *taxonomyRepository) FirstOrCreateTag(ctx context.Context, name, slug string) (*models.Tag, error) {
	var tag models.Tag
	err := r.db.WithContext(ctx).
		Where(models.Tag{Slug: slug}).
		Attrs(models.Tag{Name: name}).
		FirstOrCreate(&tag).Error
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
