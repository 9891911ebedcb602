package service

import (
	"context"
	"errors"
	"fmt"

	"classblog/internal/content"
	"classblog/internal/middleware"
	"classblog/internal/models"
	"classblog/internal/observability"
	"classblog/internal/policy"
	"classblog/internal/repository"
	"classblog/internal/validation"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	blogRepo    repository.BlogRepository
}

type CreateCommentInput struct {
	Content  string `json:"content" validate:"required,max=1000"`
	ParentID *uint  `json:"parent_id"`
}

type UpdateCommentInput struct {
	Content string `json:"content" validate:"required,max=1000"`
}

func NewCommentService(commentRepo repository.CommentRepository, blogRepo repository.BlogRepository) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		blogRepo:    blogRepo,
	}
}

// BlogPath returns the API path of a blog.
func BlogPath(id uint) string {
	return fmt.Sprintf("%s/%d", BlogsPath, id)
}

// ListComments returns the approved comment threads of a blog.
func (s *CommentService) ListComments(ctx context.Context, actor *models.User, blogID uint) ([]content.ThreadNode, error) {
	blog, err := s.loadBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, blog) {
		return nil, deny(ctx, "view_draft", blog.ID,
			"You are not authorized to view this draft blog post.", BlogsPath)
	}
	comments, err := s.commentRepo.ListByBlog(ctx, blog.ID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return content.BuildThreads(comments), nil
}

// CreateComment adds a comment or reply to a blog. Replies to replies are
// attached to the top-level comment so threads stay one level deep.
func (s *CommentService) CreateComment(ctx context.Context, actor *models.User, blogID uint, in CreateCommentInput) (*models.Comment, error) {
	if actor == nil {
		return nil, models.NewUnauthorizedError("You must be signed in to comment.").WithRedirect(BlogPath(blogID))
	}
	blog, err := s.loadBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}
	if !policy.CanView(actor, blog) {
		return nil, deny(ctx, "comment_draft", blog.ID,
			"You are not authorized to view this draft blog post.", BlogsPath)
	}
	if !policy.CanComment(blog) {
		observability.AuthorizationDenials.WithLabelValues("comments_disabled").Inc()
		return nil, models.NewCommentsDisabledError().WithRedirect(BlogPath(blog.ID))
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		BlogID:     blog.ID,
		UserID:     actor.ID,
		Content:    in.Content,
		IsApproved: true,
	}
	if in.ParentID != nil {
		parentID, err := s.resolveParent(ctx, blog.ID, *in.ParentID)
		if err != nil {
			return nil, err
		}
		comment.ParentID = &parentID
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	observability.CommentsCreated.WithLabelValues(lo.Ternary(comment.IsReply(), "reply", "top_level")).Inc()
	middleware.Logger.InfoContext(ctx, "comment created",
		"comment_id", comment.ID, "blog_id", blog.ID, "reply", comment.IsReply())

	return s.loadComment(ctx, comment.ID)
}

func (s *CommentService) UpdateComment(ctx context.Context, actor *models.User, id uint, in UpdateCommentInput) (*models.Comment, error) {
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanEditComment(actor, comment) {
		return nil, deny(ctx, "update_comment", comment.ID,
			"You are not authorized to update this comment.", BlogPath(comment.BlogID))
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	comment.Content = in.Content
	if err := s.commentRepo.Update(ctx, comment); err != nil {
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}

// DeleteComment removes a comment together with its replies.
func (s *CommentService) DeleteComment(ctx context.Context, actor *models.User, id uint) error {
	comment, err := s.loadComment(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanDeleteComment(actor, comment) {
		return deny(ctx, "delete_comment", comment.ID,
			"You are not authorized to delete this comment.", BlogPath(comment.BlogID))
	}
	if err := s.commentRepo.Delete(ctx, comment.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Comment", id)
		}
		return models.NewInternalError(err)
	}
	return nil
}

// resolveParent returns the top-level comment a reply should hang under.
func (s *CommentService) resolveParent(ctx context.Context, blogID, parentID uint) (uint, error) {
	invalid := models.NewFieldValidationError(map[string]string{
		"parent_id": "The selected parent id is invalid.",
	})
	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, invalid
		}
		return 0, models.NewInternalError(err)
	}
	if parent.BlogID != blogID {
		return 0, invalid
	}
	if parent.ParentID != nil {
		return *parent.ParentID, nil
	}
	return parent.ID, nil
}

func (s *CommentService) loadBlog(ctx context.Context, id uint) (*models.Blog, error) {
	blog, err := s.blogRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Blog", id)
		}
		return nil, models.NewInternalError(err)
	}
	return blog, nil
}

func (s *CommentService) loadComment(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return comment, nil
}
