package repository

import (
	"context"

	"classblog/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlogFilter narrows a blog listing.
type BlogFilter struct {
	// ViewerID sees their own drafts next to every published blog.
	ViewerID uint
	// AllDrafts lifts the draft restriction entirely.
	AllDrafts bool
	Limit     int
	Offset    int
}

// BlogStats summarises one author's blogs.
type BlogStats struct {
	Total      int64 `json:"total_blogs"`
	Published  int64 `json:"published_blogs"`
	Drafts     int64 `json:"draft_blogs"`
	TotalViews int64 `json:"total_views"`
}

// BlogRepository defines the interface for blog data operations
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	GetByID(ctx context.Context, id uint) (*models.Blog, error)
	List(ctx context.Context, filter BlogFilter) ([]*models.Blog, int64, error)
	RecentPublished(ctx context.Context, limit int, excludeUserID uint) ([]*models.Blog, error)
	Update(ctx context.Context, blog *models.Blog, expectedVersion uint) error
	Delete(ctx context.Context, id uint) error
	SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error)
	IncrementViewCount(ctx context.Context, id uint) error
	SetExcerpt(ctx context.Context, id uint, excerpt string) error
	IsLiked(ctx context.Context, userID, blogID uint) (bool, error)
	Like(ctx context.Context, userID, blogID uint) error
	Unlike(ctx context.Context, userID, blogID uint) error
	CountLikes(ctx context.Context, blogID uint) (int64, error)
	StatsForUser(ctx context.Context, userID uint) (BlogStats, error)
	CountPublished(ctx context.Context) (int64, error)
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository creates a new blog repository
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

// Create inserts the blog and links its categories and tags in one transaction.
// Categories and tags must already exist.
func (r *blogRepository) Create(ctx context.Context, blog *models.Blog) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, tags := blog.Categories, blog.Tags
		if err := tx.Omit(clause.Associations).Create(blog).Error; err != nil {
			return err
		}
		return replaceTaxonomy(tx, blog, categories, tags)
	})
}

func replaceTaxonomy(tx *gorm.DB, blog *models.Blog, categories []models.Category, tags []models.Tag) error {
	if len(categories) > 0 {
		if err := tx.Model(blog).Association("Categories").Replace(categories); err != nil {
			return err
		}
	} else if err := tx.Model(blog).Association("Categories").Clear(); err != nil {
		return err
	}
	if len(tags) > 0 {
		return tx.Model(blog).Association("Tags").Replace(tags)
	}
	return tx.Model(blog).Association("Tags").Clear()
}

func (r *blogRepository) GetByID(ctx context.Context, id uint) (*models.Blog, error) {
	var blog models.Blog
	err := applyBlogDetails(r.db.WithContext(ctx)).
		Preload("User").
		Preload("Categories").
		Preload("Tags").
		First(&blog, id).Error
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *blogRepository) List(ctx context.Context, filter BlogFilter) ([]*models.Blog, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.AllDrafts {
			return db
		}
		return db.Where("blogs.status = ? OR blogs.user_id = ?", models.BlogStatusPublished, filter.ViewerID)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Blog{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var blogs []*models.Blog
	q := applyBlogDetails(r.db.WithContext(ctx)).
		Scopes(scope).
		Preload("User").
		Preload("Categories").
		Preload("Tags").
		Order("blogs.created_at DESC").
		Order("blogs.id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := q.Find(&blogs).Error; err != nil {
		return nil, 0, err
	}
	return blogs, total, nil
}

// RecentPublished returns the newest published blogs, skipping excludeUserID's
// blogs when it is non-zero.
func (r *blogRepository) RecentPublished(ctx context.Context, limit int, excludeUserID uint) ([]*models.Blog, error) {
	var blogs []*models.Blog
	q := r.db.WithContext(ctx).
		Preload("User").
		Preload("Categories").
		Preload("Tags").
		Where("status = ?", models.BlogStatusPublished)
	if excludeUserID != 0 {
		q = q.Where("user_id <> ?", excludeUserID)
	}
	err := q.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&blogs).Error
	return blogs, err
}

// applyBlogDetails adds subqueries to fetch like and comment counts in a single query.
func applyBlogDetails(db *gorm.DB) *gorm.DB {
	return db.Select("blogs.*, " +
		"(SELECT COUNT(*) FROM comments WHERE comments.blog_id = blogs.id) AS comments_count, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.blog_id = blogs.id) AS likes_count")
}

// Update writes every column of blog except view_count and replaces its
// category and tag links.
// A non-zero expectedVersion makes the write conditional on the stored
// version; ErrStaleVersion is returned when it no longer matches.
func (r *blogRepository) Update(ctx context.Context, blog *models.Blog, expectedVersion uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories, tags := blog.Categories, blog.Tags
		q := tx.Model(blog).Select("*").Omit(clause.Associations, "view_count")
		if expectedVersion != 0 {
			q = q.Where("version = ?", expectedVersion)
		}
		res := q.Updates(blog)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			if expectedVersion != 0 {
				return ErrStaleVersion
			}
			return gorm.ErrRecordNotFound
		}
		return replaceTaxonomy(tx, blog, categories, tags)
	})
}

// Delete removes the blog together with its comments, likes and taxonomy links.
func (r *blogRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", id).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		if err := tx.Where("blog_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM blog_categories WHERE blog_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM blog_tags WHERE blog_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Blog{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *blogRepository) SlugExists(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&models.Blog{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blogRepository) IncrementViewCount(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// SetExcerpt stores a derived excerpt without touching updated_at.
func (r *blogRepository) SetExcerpt(ctx context.Context, id uint, excerpt string) error {
	return r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Where("id = ?", id).
		UpdateColumn("excerpt", excerpt).Error
}

func (r *blogRepository) IsLiked(ctx context.Context, userID, blogID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND blog_id = ?", userID, blogID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *blogRepository) Like(ctx context.Context, userID, blogID uint) error {
	// ON CONFLICT DO NOTHING keeps concurrent toggles from failing on the unique index
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "blog_id"}},
			DoNothing: true,
		}).
		Create(&models.Like{UserID: userID, BlogID: blogID}).Error
}

func (r *blogRepository) Unlike(ctx context.Context, userID, blogID uint) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND blog_id = ?", userID, blogID).
		Delete(&models.Like{}).Error
}

func (r *blogRepository) CountLikes(ctx context.Context, blogID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("blog_id = ?", blogID).
		Count(&count).Error
	return count, err
}

func (r *blogRepository) StatsForUser(ctx context.Context, userID uint) (BlogStats, error) {
	var stats BlogStats
	err := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Select(
			"COUNT(*) AS total, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS published, "+
				"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS drafts, "+
				"COALESCE(SUM(view_count), 0) AS total_views",
			models.BlogStatusPublished, models.BlogStatusDraft,
		).
		Where("user_id = ?", userID).
		Scan(&stats).Error
	return stats, err
}

func (r *blogRepository) CountPublished(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Blog{}).
		Where("status = ?", models.BlogStatusPublished).
		Count(&count).Error
	return count, err
}
