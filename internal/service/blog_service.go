// Package service orchestrates authorization, persistence and content
// assembly for the HTTP layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"classblog/internal/content"
	"classblog/internal/middleware"
	"classblog/internal/models"
	"classblog/internal/observability"
	"classblog/internal/policy"
	"classblog/internal/repository"
	"classblog/internal/storage"
	"classblog/internal/validation"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// BlogsPath is where denied blog actions send the caller.
const BlogsPath = "/api/blogs"

const maxSlugAttempts = 50

type BlogService struct {
	blogRepo     repository.BlogRepository
	commentRepo  repository.CommentRepository
	taxonomyRepo repository.TaxonomyRepository
	store        storage.Store
}

// ImageUpload is an image file submitted with a blog.
type ImageUpload struct {
	Name string
	Data []byte
}

// BlogInput carries the editable fields of a blog.
type BlogInput struct {
	Title           string       `json:"title" validate:"required,max=255"`
	Content         string       `json:"content" validate:"required"`
	FormatType      string       `json:"format_type" validate:"omitempty,oneof=markdown rich_text html"`
	Status          string       `json:"status" validate:"omitempty,oneof=draft published"`
	MetaTitle       *string      `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription *string      `json:"meta_description"`
	Slug            *string      `json:"slug" validate:"omitempty,max=255,slug"`
	AllowComments   *bool        `json:"allow_comments"`
	IsFeatured      *bool        `json:"is_featured"`
	CategoryIDs     []uint       `json:"category_ids"`
	Tags            []string     `json:"tags" validate:"omitempty,dive,required,max=50"`
	Image           *ImageUpload `json:"-"`
}

type CreateBlogInput struct {
	BlogInput
}

type UpdateBlogInput struct {
	BlogInput
	// Version, when set, must match the stored version for the update to apply.
	Version *uint `json:"version"`
}

type ListBlogsInput struct {
	Limit  int
	Offset int
}

// BlogPage is one page of the blog listing.
type BlogPage struct {
	Blogs  []*models.Blog `json:"blogs"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// BlogDetail is the blog view with the viewer's rights and comment threads.
type BlogDetail struct {
	Blog        *models.Blog           `json:"blog"`
	IsLiked     bool                   `json:"is_liked"`
	Permissions policy.BlogPermissions `json:"permissions"`
	Comments    []content.ThreadNode   `json:"comments"`
}

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

func NewBlogService(
	blogRepo repository.BlogRepository,
	commentRepo repository.CommentRepository,
	taxonomyRepo repository.TaxonomyRepository,
	store storage.Store,
) *BlogService {
	return &BlogService{
		blogRepo:     blogRepo,
		commentRepo:  commentRepo,
		taxonomyRepo: taxonomyRepo,
		store:        store,
	}
}

// ListBlogs returns published blogs plus the actor's own drafts, or every
// blog for moderators, newest first.
func (s *BlogService) ListBlogs(ctx context.Context, actor *models.User, in ListBlogsInput) (*BlogPage, error) {
	filter := repository.BlogFilter{
		AllDrafts: actor.IsModerator(),
		Limit:     in.Limit,
		Offset:    in.Offset,
	}
	if actor != nil {
		filter.ViewerID = actor.ID
	}
	blogs, total, err := s.blogRepo.List(ctx, filter)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, b := range blogs {
		s.ensureExcerpt(ctx, b)
	}
	if blogs == nil {
		blogs = []*models.Blog{}
	}
	return &BlogPage{Blogs: blogs, Total: total, Limit: in.Limit, Offset: in.Offset}, nil
}

// GetBlog loads a blog for actor. Views by anyone but the author are counted.
func (s *BlogService) GetBlog(ctx context.Context, actor *models.User, id uint) (*BlogDetail, error) {
	blog, err := s.loadBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, blog) {
		return nil, deny(ctx, "view_draft", blog.ID,
			"You are not authorized to view this draft blog post.", BlogsPath)
	}

	if actor == nil || actor.ID != blog.UserID {
		if err := s.blogRepo.IncrementViewCount(ctx, blog.ID); err != nil {
			return nil, models.NewInternalError(err)
		}
		blog.ViewCount++
		observability.BlogViews.Inc()
	}
	s.ensureExcerpt(ctx, blog)

	detail := &BlogDetail{
		Blog:        blog,
		Permissions: policy.ForBlog(actor, blog),
	}
	if actor != nil {
		if detail.IsLiked, err = s.blogRepo.IsLiked(ctx, actor.ID, blog.ID); err != nil {
			return nil, models.NewInternalError(err)
		}
	}

	comments, err := s.commentRepo.ListByBlog(ctx, blog.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	detail.Comments = content.BuildThreads(comments)
	return detail, nil
}

func (s *BlogService) CreateBlog(ctx context.Context, actor *models.User, in CreateBlogInput) (*models.Blog, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be signed in to write a blog.").WithRedirect(BlogsPath)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	slug, err := s.resolveSlug(ctx, in.Slug, in.Title, 0)
	if err != nil {
		return nil, err
	}
	categories, tags, err := s.resolveTaxonomy(ctx, in.CategoryIDs, in.Tags)
	if err != nil {
		return nil, err
	}

	blog := &models.Blog{
		UserID:          actor.ID,
		Title:           in.Title,
		Content:         in.Content,
		FormatType:      lo.Ternary(in.FormatType == "", models.FormatMarkdown, in.FormatType),
		Status:          models.BlogStatus(lo.Ternary(in.Status == "", string(models.BlogStatusDraft), in.Status)),
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		Slug:            slug,
		Version:         1,
		AllowComments:   lo.FromPtrOr(in.AllowComments, true),
		IsFeatured:      actor.IsModerator() && lo.FromPtr(in.IsFeatured),
		Categories:      categories,
		Tags:            tags,
	}

	if in.Image != nil {
		path, err := s.store.Store(ctx, in.Image.Name, in.Image.Data)
		if err != nil {
			return nil, err
		}
		blog.ImagePath = path
	}

	if err := s.blogRepo.Create(ctx, blog); err != nil {
		s.discardImage(ctx, blog.ImagePath)
		return nil, models.NewInternalError(err)
	}
	middleware.Logger.InfoContext(ctx, "blog created", "blog_id", blog.ID, "status", blog.Status)

	return s.reload(ctx, blog.ID)
}

// UpdateBlog applies in to an existing blog and bumps its version. Fields
// left out of in keep their stored values.
func (s *BlogService) UpdateBlog(ctx context.Context, actor *models.User, id uint, in UpdateBlogInput) (*models.Blog, error) {
	blog, err := s.loadBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEdit(actor, blog) {
		return nil, deny(ctx, "update_blog", blog.ID,
			"You are not authorized to update this blog.", BlogsPath)
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var expected uint
	if in.Version != nil {
		if *in.Version != blog.Version {
			return nil, staleVersion(blog)
		}
		expected = blog.Version
	}

	slugSource := in.Slug
	if slugSource == nil && blog.Slug != nil {
		slugSource = blog.Slug
	}
	slug, err := s.resolveSlug(ctx, slugSource, in.Title, blog.ID)
	if err != nil {
		return nil, err
	}
	categories, tags, err := s.resolveTaxonomy(ctx, in.CategoryIDs, in.Tags)
	if err != nil {
		return nil, err
	}

	if blog.Content != in.Content {
		blog.Excerpt = ""
	}
	blog.Title = in.Title
	blog.Content = in.Content
	blog.FormatType = lo.Ternary(in.FormatType == "", models.FormatMarkdown, in.FormatType)
	if in.Status != "" {
		blog.Status = models.BlogStatus(in.Status)
	}
	blog.MetaTitle = in.MetaTitle
	blog.MetaDescription = in.MetaDescription
	blog.Slug = slug
	blog.AllowComments = lo.FromPtrOr(in.AllowComments, blog.AllowComments)
	if in.IsFeatured != nil && actor.IsModerator() {
		blog.IsFeatured = *in.IsFeatured
	}
	blog.Categories = categories
	blog.Tags = tags
	blog.Version++

	oldImage := blog.ImagePath
	if in.Image != nil {
		path, err := s.store.Store(ctx, in.Image.Name, in.Image.Data)
		if err != nil {
			return nil, err
		}
		blog.ImagePath = path
	}

	if err := s.blogRepo.Update(ctx, blog, expected); err != nil {
		if in.Image != nil {
			s.discardImage(ctx, blog.ImagePath)
		}
		if errors.Is(err, repository.ErrStaleVersion) {
			blog.Version--
			return nil, staleVersion(blog)
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Blog", id)
		}
		return nil, models.NewInternalError(err)
	}
	if in.Image != nil && oldImage != "" {
		s.discardImage(ctx, oldImage)
	}
	middleware.Logger.InfoContext(ctx, "blog updated", "blog_id", blog.ID, "version", blog.Version)

	return s.reload(ctx, blog.ID)
}

// DeleteBlog removes a blog with its comments, likes, links and stored image.
func (s *BlogService) DeleteBlog(ctx context.Context, actor *models.User, id uint) error {
	blog, err := s.loadBlog(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDelete(actor, blog) {
		return deny(ctx, "delete_blog", blog.ID,
			"You are not authorized to delete this blog.", BlogsPath)
	}
	if err := s.blogRepo.Delete(ctx, blog.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Blog", id)
		}
		return models.NewInternalError(err)
	}
	s.discardImage(ctx, blog.ImagePath)
	middleware.Logger.InfoContext(ctx, "blog deleted", "blog_id", blog.ID)
	return nil
}

// ToggleLike likes the blog for actor, or removes an existing like.
func (s *BlogService) ToggleLike(ctx context.Context, actor *models.User, id uint) (*LikeResult, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be signed in to like a blog.").WithRedirect(BlogsPath)
	}
	blog, err := s.loadBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, blog) {
		return nil, deny(ctx, "like_draft", blog.ID,
			"You are not authorized to view this draft blog post.", BlogsPath)
	}

	liked, err := s.blogRepo.IsLiked(ctx, actor.ID, blog.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if liked {
		err = s.blogRepo.Unlike(ctx, actor.ID, blog.ID)
	} else {
		err = s.blogRepo.Like(ctx, actor.ID, blog.ID)
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	count, err := s.blogRepo.CountLikes(ctx, blog.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.LikeToggles.WithLabelValues(lo.Ternary(liked, "unliked", "liked")).Inc()
	return &LikeResult{Liked: !liked, LikesCount: count}, nil
}

func (s *BlogService) loadBlog(ctx context.Context, id uint) (*models.Blog, error) {
	blog, err := s.blogRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Blog", id)
		}
		return nil, models.NewInternalError(err)
	}
	return blog, nil
}

func (s *BlogService) reload(ctx context.Context, id uint) (*models.Blog, error) {
	blog, err := s.loadBlog(ctx, id)
	if err != nil {
		return nil, err
	}
	s.ensureExcerpt(ctx, blog)
	return blog, nil
}

// ensureExcerpt derives a missing excerpt and stores it for later reads.
// A failed write only costs a recomputation next time.
func (s *BlogService) ensureExcerpt(ctx context.Context, blog *models.Blog) {
	if blog.Excerpt != "" {
		return
	}
	blog.Excerpt = content.MakeExcerpt(blog.Content, content.DefaultExcerptLength)
	if blog.Excerpt == "" {
		return
	}
	if err := s.blogRepo.SetExcerpt(ctx, blog.ID, blog.Excerpt); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to cache excerpt", "blog_id", blog.ID, "error", err)
	}
}

// resolveSlug checks a requested slug for uniqueness, or derives a free one
// from the title. A title without any slug-able characters yields no slug.
func (s *BlogService) resolveSlug(ctx context.Context, requested *string, title string, excludeID uint) (*string, error) {
	if requested != nil && *requested != "" {
		taken, err := s.blogRepo.SlugExists(ctx, *requested, excludeID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if taken {
			return nil, models.NewFieldValidationError(map[string]string{
				"slug": "The slug has already been taken.",
			})
		}
		return lo.ToPtr(*requested), nil
	}

	base := content.Slugify(title)
	if base == "" {
		return nil, nil
	}
	if len(base) > 240 {
		base = strings.TrimRight(base[:240], "-")
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts; i++ {
		taken, err := s.blogRepo.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if !taken {
			return &candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return nil, models.NewFieldValidationError(map[string]string{
		"slug": "The slug has already been taken.",
	})
}

// resolveTaxonomy loads the selected categories and finds or creates tags by
// their slug.
func (s *BlogService) resolveTaxonomy(ctx context.Context, categoryIDs []uint, tagNames []string) ([]models.Category, []models.Tag, error) {
	ids := lo.Uniq(categoryIDs)
	categories, err := s.taxonomyRepo.CategoriesByIDs(ctx, ids)
	if err != nil {
		return nil, nil, models.NewInternalError(err)
	}
	if len(categories) != len(ids) {
		return nil, nil, models.NewFieldValidationError(map[string]string{
			"category_ids": "The selected category ids is invalid.",
		})
	}

	var tags []models.Tag
	seen := make(map[string]struct{}, len(tagNames))
	for _, name := range tagNames {
		name = strings.TrimSpace(name)
		slug := content.Slugify(name)
		if slug == "" {
			continue
		}
		if _, dup := seen[slug]; dup {
			continue
		}
		seen[slug] = struct{}{}
		tag, err := s.taxonomyRepo.FirstOrCreateTag(ctx, name, slug)
		if err != nil {
			return nil, nil, models.NewInternalError(err)
		}
		tags = append(tags, *tag)
	}
	return categories, tags, nil
}

func (s *BlogService) discardImage(ctx context.Context, path string) {
	if path == "" {
		return
	}
	if err := s.store.Delete(ctx, path); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to remove blog image", "path", path, "error", err)
	}
}

func staleVersion(blog *models.Blog) error {
	return models.NewConflictError(fmt.Sprintf(
		"The blog was changed by someone else (current version %d). Reload and try again.", blog.Version))
}

// deny logs and counts a refused action and returns the matching error.
func deny(ctx context.Context, action string, resourceID uint, msg, redirect string) error {
	middleware.Logger.WarnContext(ctx, "authorization denied", "action", action, "resource_id", resourceID)
	observability.AuthorizationDenials.WithLabelValues(action).Inc()
	return models.NewUnauthorizedError(msg).WithRedirect(redirect)
}
