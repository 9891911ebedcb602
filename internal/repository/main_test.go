package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"classblog/internal/database"
	"classblog/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory SQLite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano()),
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createBlog(t *testing.T, db *gorm.DB, owner *models.User, title string, status models.BlogStatus, at time.Time) *models.Blog {
	t.Helper()
	b := &models.Blog{
		UserID:        owner.ID,
		Title:         title,
		Content:       "content of " + title,
		FormatType:    models.FormatMarkdown,
		Status:        status,
		Version:       1,
		AllowComments: true,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
	require.NoError(t, NewBlogRepository(db).Create(context.Background(), b))
	return b
}

func createComment(t *testing.T, db *gorm.DB, blog *models.Blog, author *models.User, parentID *uint, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		BlogID:     blog.ID,
		UserID:     author.ID,
		ParentID:   parentID,
		Content:    "comment",
		IsApproved: true,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	require.NoError(t, NewCommentRepository(db).Create(context.Background(), c))
	return c
}
