package service

import (
	"context"
	"time"

	"classblog/internal/content"
	"classblog/internal/models"
	"classblog/internal/observability"
	"classblog/internal/repository"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DashboardBlogLimit is how many recent blogs the dashboard shows.
	DashboardBlogLimit = 5
	// DashboardExcerptLimit caps the dashboard blog excerpts.
	DashboardExcerptLimit = 100
)

type DashboardService struct {
	blogRepo    repository.BlogRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
}

// DashboardBlog is a compact blog card for the dashboard.
type DashboardBlog struct {
	ID         uint           `json:"id"`
	Title      string         `json:"title"`
	Slug       *string        `json:"slug"`
	Excerpt    string         `json:"excerpt"`
	Author     content.Author `json:"author"`
	ViewCount  uint           `json:"view_count"`
	Categories []string       `json:"categories"`
	Tags       []string       `json:"tags"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ClassStats are platform-wide counters.
type ClassStats struct {
	TotalStudents int64 `json:"total_students"`
	TotalTeachers int64 `json:"total_teachers"`
	TotalBlogs    int64 `json:"total_blogs"`
	TotalComments int64 `json:"total_comments"`
}

type Dashboard struct {
	RecentBlogs    []DashboardBlog      `json:"recent_blogs"`
	RecentActivity []content.Activity   `json:"recent_activity"`
	UserBlogStats  repository.BlogStats `json:"user_blog_stats"`
	ClassStats     ClassStats           `json:"class_stats"`
}

func NewDashboardService(
	blogRepo repository.BlogRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
) *DashboardService {
	return &DashboardService{
		blogRepo:    blogRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
	}
}

// GetDashboard assembles the dashboard for actor.
func (s *DashboardService) GetDashboard(ctx context.Context, actor *models.User) (_ *Dashboard, err error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be signed in to view the dashboard.").WithRedirect(BlogsPath)
	}
	ctx, end := observability.StartSpan(ctx, "dashboard.get", attribute.Int64("user.id", int64(actor.ID)))
	defer func() { end(err) }()

	recent, err := s.blogRepo.RecentPublished(ctx, DashboardBlogLimit, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	comments, err := s.commentRepo.RecentOnPublished(ctx, content.RecentCommentLimit)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	othersBlogs, err := s.blogRepo.RecentPublished(ctx, content.RecentBlogLimit, actor.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	userStats, err := s.blogRepo.StatsForUser(ctx, actor.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	classStats, err := s.classStats(ctx)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		RecentBlogs:    lo.Map(recent, func(b *models.Blog, _ int) DashboardBlog { return dashboardBlog(b) }),
		RecentActivity: content.BuildActivityFeed(comments, othersBlogs),
		UserBlogStats:  userStats,
		ClassStats:     classStats,
	}, nil
}

func (s *DashboardService) classStats(ctx context.Context) (ClassStats, error) {
	var stats ClassStats
	var err error
	if stats.TotalStudents, err = s.userRepo.CountByRoles(ctx, models.RoleStudent); err != nil {
		return stats, models.NewInternalError(err)
	}
	if stats.TotalTeachers, err = s.userRepo.CountByRoles(ctx, models.ModeratorRoles...); err != nil {
		return stats, models.NewInternalError(err)
	}
	if stats.TotalBlogs, err = s.blogRepo.CountPublished(ctx); err != nil {
		return stats, models.NewInternalError(err)
	}
	if stats.TotalComments, err = s.commentRepo.Count(ctx); err != nil {
		return stats, models.NewInternalError(err)
	}
	return stats, nil
}

func dashboardBlog(b *models.Blog) DashboardBlog {
	return DashboardBlog{
		ID:         b.ID,
		Title:      b.Title,
		Slug:       b.Slug,
		Excerpt:    content.LimitString(content.StripTags(b.Content), DashboardExcerptLimit),
		Author:     content.AuthorOf(b.User),
		ViewCount:  b.ViewCount,
		Categories: lo.Map(b.Categories, func(c models.Category, _ int) string { return c.Name }),
		Tags:       lo.Map(b.Tags, func(t models.Tag, _ int) string { return t.Name }),
		CreatedAt:  b.CreatedAt,
	}
}
