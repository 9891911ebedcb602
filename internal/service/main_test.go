package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"classblog/internal/database"
	"classblog/internal/models"
	"classblog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// storeStub is a stub for storage.Store.
type storeStub struct {
	storeFn  func(context.Context, string, []byte) (string, error)
	deleteFn func(context.Context, string) error
	deleted  []string
}

func (s *storeStub) Store(ctx context.Context, name string, data []byte) (string, error) {
	return s.storeFn(ctx, name, data)
}
func (s *storeStub) Delete(ctx context.Context, path string) error {
	s.deleted = append(s.deleted, path)
	return s.deleteFn(ctx, path)
}
func (s *storeStub) URL(path string) string {
	return "/uploads/" + path
}

func noopStore() *storeStub {
	n := 0
	return &storeStub{
		storeFn: func(_ context.Context, _ string, _ []byte) (string, error) {
			n++
			return fmt.Sprintf("blogs/image-%d.png", n), nil
		},
		deleteFn: func(_ context.Context, _ string) error { return nil },
	}
}

type fixture struct {
	db        *gorm.DB
	store     *storeStub
	blogs     *BlogService
	comments  *CommentService
	dashboard *DashboardService
	taxonomy  *TaxonomyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	blogRepo := repository.NewBlogRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	taxonomyRepo := repository.NewTaxonomyRepository(db)
	userRepo := repository.NewUserRepository(db)
	store := noopStore()

	return &fixture{
		db:        db,
		store:     store,
		blogs:     NewBlogService(blogRepo, commentRepo, taxonomyRepo, store),
		comments:  NewCommentService(commentRepo, blogRepo),
		dashboard: NewDashboardService(blogRepo, commentRepo, userRepo),
		taxonomy:  NewTaxonomyService(taxonomyRepo),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{
		Name:     name,
		Email:    fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano()),
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *fixture) blog(t *testing.T, owner *models.User, title string, status models.BlogStatus) *models.Blog {
	t.Helper()
	b, err := f.blogs.CreateBlog(context.Background(), owner, CreateBlogInput{BlogInput: BlogInput{
		Title:   title,
		Content: "Content of " + title,
		Status:  string(status),
	}})
	require.NoError(t, err)
	return b
}

func assertAppError(t *testing.T, err error, code string) *models.AppError {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}
