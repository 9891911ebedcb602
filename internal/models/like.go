package models

import "time"

// Like represents a user's like on a blog.
// The combination of UserID and BlogID must be unique.
type Like struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_blog" json:"user_id"`
	BlogID    uint      `gorm:"not null;uniqueIndex:idx_user_blog;index" json:"blog_id"`
	CreatedAt time.Time `json:"created_at"`
}
