package content

import (
	"sort"
	"time"

	"classblog/internal/models"

	"github.com/samber/lo"
)

// Author is the public face of a user inside a view model.
type Author struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReplyNode is a comment rendered one level below its parent. It never has
// replies of its own.
type ReplyNode struct {
	ID        uint      `json:"id"`
	ParentID  uint      `json:"parent_id"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

// ThreadNode is a top-level comment with its replies.
type ThreadNode struct {
	ID        uint        `json:"id"`
	Content   string      `json:"content"`
	Author    Author      `json:"author"`
	CreatedAt time.Time   `json:"created_at"`
	Replies   []ReplyNode `json:"replies"`
}

// AuthorOf converts a user into an Author.
func AuthorOf(u models.User) Author {
	return Author{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// BuildThreads arranges the comments of one blog into a two-tier listing.
//
// Only approved top-level comments are listed, newest first. Replies are
// attached to their parent oldest first without an approval filter. Replies
// whose parent is not listed (unapproved, missing or itself a reply) are
// dropped, so the result is never deeper than one level.
func BuildThreads(comments []*models.Comment) []ThreadNode {
	topLevel := lo.Filter(comments, func(c *models.Comment, _ int) bool {
		return c != nil && c.ParentID == nil && c.IsApproved
	})
	replies := lo.Filter(comments, func(c *models.Comment, _ int) bool {
		return c != nil && c.ParentID != nil
	})
	byParent := lo.GroupBy(replies, func(c *models.Comment) uint {
		return *c.ParentID
	})

	sort.SliceStable(topLevel, func(i, j int) bool {
		if topLevel[i].CreatedAt.Equal(topLevel[j].CreatedAt) {
			return topLevel[i].ID > topLevel[j].ID
		}
		return topLevel[i].CreatedAt.After(topLevel[j].CreatedAt)
	})

	threads := make([]ThreadNode, 0, len(topLevel))
	for _, c := range topLevel {
		children := byParent[c.ID]
		sort.SliceStable(children, func(i, j int) bool {
			if children[i].CreatedAt.Equal(children[j].CreatedAt) {
				return children[i].ID < children[j].ID
			}
			return children[i].CreatedAt.Before(children[j].CreatedAt)
		})

		node := ThreadNode{
			ID:        c.ID,
			Content:   c.Content,
			Author:    AuthorOf(c.User),
			CreatedAt: c.CreatedAt,
			Replies:   make([]ReplyNode, 0, len(children)),
		}
		for _, r := range children {
			node.Replies = append(node.Replies, ReplyNode{
				ID:        r.ID,
				ParentID:  c.ID,
				Content:   r.Content,
				Author:    AuthorOf(r.User),
				CreatedAt: r.CreatedAt,
			})
		}
		threads = append(threads, node)
	}
	return threads
}
