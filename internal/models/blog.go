package models

import "time"

// BlogStatus is the publication state of a blog.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// Blog format types.
const (
	FormatMarkdown = "markdown"
	FormatRichText = "rich_text"
	FormatHTML     = "html"
)

// Blog represents a post written by a user.
type Blog struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index" json:"user_id"`
	User            User       `gorm:"foreignKey:UserID" json:"user"`
	Title           string     `gorm:"size:255;not null" json:"title"`
	Content         string     `gorm:"type:text;not null" json:"content"`
	Excerpt         string     `gorm:"type:text" json:"excerpt"`
	ImagePath       string     `json:"image_path,omitempty"`
	FormatType      string     `gorm:"size:32;not null" json:"format_type"`
	Status          BlogStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	MetaTitle       *string    `gorm:"size:255" json:"meta_title"`
	MetaDescription *string    `gorm:"type:text" json:"meta_description"`
	Slug            *string    `gorm:"size:255;uniqueIndex" json:"slug"`
	ViewCount       uint       `gorm:"not null" json:"view_count"`
	Version         uint       `gorm:"not null" json:"version"`
	IsFeatured      bool       `gorm:"not null" json:"is_featured"`
	AllowComments   bool       `gorm:"not null" json:"allow_comments"`
	Categories      []Category `gorm:"many2many:blog_categories" json:"categories"`
	Tags            []Tag      `gorm:"many2many:blog_tags" json:"tags"`
	// LikesCount is not persisted; computed at query time
	LikesCount int `gorm:"->;-:migration" json:"likes_count"`
	// CommentsCount is not persisted; computed at query time
	CommentsCount int       `gorm:"->;-:migration" json:"comments_count"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsPublished reports whether the blog is visible to everyone.
func (b *Blog) IsPublished() bool {
	return b.Status == BlogStatusPublished
}
