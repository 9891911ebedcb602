// Package policy decides what an actor may do with blogs and comments.
//
// Every function is pure: it looks only at the actor and the resource that are
// passed in and never touches storage. A nil actor is treated as anonymous and
// is denied everything except viewing published blogs.
package policy

import "classblog/internal/models"

// CanView reports whether actor may read blog. Published blogs are visible to
// everyone; drafts only to their owner and moderators.
func CanView(actor *models.User, blog *models.Blog) bool {
	if blog == nil {
		return false
	}
	if blog.Status == models.BlogStatusPublished {
		return true
	}
	return isOwner(actor, blog.UserID) || actor.IsModerator()
}

// CanEdit reports whether actor may change blog.
func CanEdit(actor *models.User, blog *models.Blog) bool {
	return blog != nil && (isOwner(actor, blog.UserID) || actor.IsModerator())
}

// CanDelete reports whether actor may remove blog.
func CanDelete(actor *models.User, blog *models.Blog) bool {
	return blog != nil && (isOwner(actor, blog.UserID) || actor.IsModerator())
}

// CanComment reports whether the blog accepts new comments. The actor is not
// consulted: any authenticated user may comment while the gate is open.
func CanComment(blog *models.Blog) bool {
	return blog != nil && blog.AllowComments
}

// CanEditComment reports whether actor may change comment.
func CanEditComment(actor *models.User, comment *models.Comment) bool {
	return comment != nil && (isOwner(actor, comment.UserID) || actor.IsModerator())
}

// CanDeleteComment reports whether actor may remove comment.
func CanDeleteComment(actor *models.User, comment *models.Comment) bool {
	return comment != nil && (isOwner(actor, comment.UserID) || actor.IsModerator())
}

// BlogPermissions summarises the actor's rights on a single blog for views.
type BlogPermissions struct {
	CanEdit    bool `json:"can_edit"`
	CanDelete  bool `json:"can_delete"`
	CanComment bool `json:"can_comment"`
}

// ForBlog evaluates all blog permissions at once.
func ForBlog(actor *models.User, blog *models.Blog) BlogPermissions {
	return BlogPermissions{
		CanEdit:    CanEdit(actor, blog),
		CanDelete:  CanDelete(actor, blog),
		CanComment: CanComment(blog),
	}
}

func isOwner(actor *models.User, ownerID uint) bool {
	return actor != nil && actor.ID != 0 && actor.ID == ownerID
}
