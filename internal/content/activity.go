package content

import (
	"sort"
	"time"

	"classblog/internal/models"

	"github.com/samber/lo"
)

const (
	// RecentCommentLimit is how many comments feed the activity list.
	RecentCommentLimit = 5
	// RecentBlogLimit is how many published blogs feed the activity list.
	RecentBlogLimit = 3
	// ActivityFeedLimit caps the merged activity list.
	ActivityFeedLimit = 6
	// ActivityTitleLimit caps blog titles quoted in activity descriptions.
	ActivityTitleLimit = 30
)

// ActivityType distinguishes entries of the activity feed.
type ActivityType string

const (
	ActivityComment       ActivityType = "comment"
	ActivityBlogPublished ActivityType = "blog_published"
)

// Actor is the user an activity is attributed to.
type Actor struct {
	Name     string `json:"name"`
	Avatar   string `json:"avatar,omitempty"`
	Initials string `json:"initials"`
}

// Activity is one entry in the dashboard feed.
type Activity struct {
	Type        ActivityType `json:"type"`
	Actor       Actor        `json:"user"`
	Description string       `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
}

func actorOf(u models.User) Actor {
	return Actor{Name: u.Name, Avatar: u.Avatar, Initials: Initials(u.Name)}
}

// CommentActivity describes a comment. The comment's Blog must be loaded.
func CommentActivity(c *models.Comment) Activity {
	title := ""
	if c.Blog != nil {
		title = c.Blog.Title
	}
	return Activity{
		Type:        ActivityComment,
		Actor:       actorOf(c.User),
		Description: `commented on "` + LimitString(title, ActivityTitleLimit) + `"`,
		CreatedAt:   c.CreatedAt,
	}
}

// BlogActivity describes a published blog.
func BlogActivity(b *models.Blog) Activity {
	return Activity{
		Type:        ActivityBlogPublished,
		Actor:       actorOf(b.User),
		Description: `published "` + LimitString(b.Title, ActivityTitleLimit) + `"`,
		CreatedAt:   b.CreatedAt,
	}
}

// MergeActivity concatenates the lists, sorts newest first and keeps at most
// limit entries. Equal timestamps keep their input order, so comments precede
// blogs on ties.
func MergeActivity(limit int, lists ...[]Activity) []Activity {
	merged := lo.Flatten(lists)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if limit >= 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// BuildActivityFeed turns recent comments and blogs into the dashboard feed.
func BuildActivityFeed(comments []*models.Comment, blogs []*models.Blog) []Activity {
	commentActivity := lo.Map(comments, func(c *models.Comment, _ int) Activity {
		return CommentActivity(c)
	})
	blogActivity := lo.Map(blogs, func(b *models.Blog, _ int) Activity {
		return BlogActivity(b)
	})
	return MergeActivity(ActivityFeedLimit, commentActivity, blogActivity)
}
