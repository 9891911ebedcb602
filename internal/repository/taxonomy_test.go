package repository

import (
	"context"
	"testing"

	"classblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomyRepository_FirstOrCreateTag(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaxonomyRepository(db)
	ctx := context.Background()

	first, err := repo.FirstOrCreateTag(ctx, "JavaScript", "javascript")
	require.NoError(t, err)
	require.NotZero(t, first.ID)

	again, err := repo.FirstOrCreateTag(ctx, "Javascript", "javascript")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "JavaScript", again.Name, "existing tag keeps its name")

	tags, err := repo.ListTags(ctx)
	require.NoError(t, err)
	assert.Len(t, tags, 1)
}

func TestTaxonomyRepository_Categories(t *testing.T) {
	db := newTestDB(t)
	repo := NewTaxonomyRepository(db)
	ctx := context.Background()

	web := &models.Category{Name: "Web Development", Slug: "web-development"}
	ai := &models.Category{Name: "AI", Slug: "ai"}
	require.NoError(t, repo.CreateCategory(ctx, web))
	require.NoError(t, repo.CreateCategory(ctx, ai))

	err := repo.CreateCategory(ctx, &models.Category{Name: "Dup", Slug: "ai"})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	all, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AI", all[0].Name, "sorted by name")

	picked, err := repo.CategoriesByIDs(ctx, []uint{web.ID, 999})
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, web.ID, picked[0].ID)

	none, err := repo.CategoriesByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}
