package models

import "time"

// Comment is a remark on a blog. ParentID links a reply to its top-level comment.
type Comment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	BlogID     uint      `gorm:"not null;index" json:"blog_id"`
	Blog       *Blog     `gorm:"foreignKey:BlogID" json:"blog,omitempty"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	User       User      `gorm:"foreignKey:UserID" json:"user"`
	ParentID   *uint     `gorm:"index" json:"parent_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	IsApproved bool      `gorm:"not null" json:"is_approved"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}
