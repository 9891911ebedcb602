// Package seed provides database seeding utilities for development and demos.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"classblog/internal/content"
	"classblog/internal/middleware"
	"classblog/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/samber/lo"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded account.
const DemoPassword = "Classroom123!"

//go:embed data/classroom.yml
var classroomYAML []byte

// Fixture is the hand-written part of the demo classroom.
type Fixture struct {
	Users      []FixtureUser     `yaml:"users"`
	Categories []models.Category `yaml:"categories"`
	Tags       []models.Tag      `yaml:"tags"`
	Blogs      []FixtureBlog     `yaml:"blogs"`
}

type FixtureUser struct {
	Name  string      `yaml:"name"`
	Email string      `yaml:"email"`
	Role  models.Role `yaml:"role"`
}

type FixtureBlog struct {
	Title           string            `yaml:"title"`
	Slug            string            `yaml:"slug"`
	Author          string            `yaml:"author"`
	Status          models.BlogStatus `yaml:"status"`
	MetaTitle       string            `yaml:"meta_title"`
	MetaDescription string            `yaml:"meta_description"`
	AllowComments   *bool             `yaml:"allow_comments"`
	Categories      []string          `yaml:"categories"`
	Tags            []string          `yaml:"tags"`
	Content         string            `yaml:"content"`
}

// LoadFixture parses the embedded demo classroom.
func LoadFixture() (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(classroomYAML, &f); err != nil {
		return nil, fmt.Errorf("parse classroom fixture: %w", err)
	}
	for _, u := range f.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("fixture user %s has unknown role %q", u.Email, u.Role)
		}
	}
	return &f, nil
}

// Options configures a seeding run.
type Options struct {
	// Students is the number of generated student accounts on top of the fixture.
	Students int
	// Blogs is the number of generated blogs on top of the fixture.
	Blogs int
	// MaxComments caps the generated top-level comments per published blog.
	MaxComments int
	// Clean wipes every table before seeding.
	Clean bool
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// Summary counts what a run created.
type Summary struct {
	Users    int
	Blogs    int
	Comments int
	Likes    int
}

// Seeder writes demo data. Fixture rows are upserted by their natural key so
// a run can be repeated without duplicates.
type Seeder struct {
	db   *gorm.DB
	fake *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, randSeed int64) *Seeder {
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}
	return &Seeder{db: db, fake: gofakeit.New(randSeed)}
}

// Run seeds the fixture and then the generated content.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	fixture, err := LoadFixture()
	if err != nil {
		return nil, err
	}
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users, err := s.seedUsers(tx, fixture.Users, opts.Students, string(hash))
		if err != nil {
			return fmt.Errorf("users: %w", err)
		}
		summary.Users = len(users)

		categories, tags, err := s.seedTaxonomy(tx, fixture)
		if err != nil {
			return fmt.Errorf("taxonomy: %w", err)
		}

		byEmail := lo.KeyBy(users, func(u *models.User) string { return u.Email })
		blogs, err := s.seedFixtureBlogs(tx, fixture.Blogs, byEmail, categories, tags)
		if err != nil {
			return fmt.Errorf("fixture blogs: %w", err)
		}
		generated, err := s.generateBlogs(tx, users, opts.Blogs,
			lo.Values(categories), lo.Values(tags))
		if err != nil {
			return fmt.Errorf("generated blogs: %w", err)
		}
		blogs = append(blogs, generated...)
		summary.Blogs = len(blogs)

		published := lo.Filter(blogs, func(b *models.Blog, _ int) bool {
			return b.IsPublished() && b.AllowComments
		})
		if summary.Comments, err = s.generateComments(tx, users, published, opts.MaxComments); err != nil {
			return fmt.Errorf("comments: %w", err)
		}
		if summary.Likes, err = s.generateLikes(tx, users, published); err != nil {
			return fmt.Errorf("likes: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	middleware.Logger.InfoContext(ctx, "seeding complete",
		"users", summary.Users, "blogs", summary.Blogs,
		"comments", summary.Comments, "likes", summary.Likes)
	return summary, nil
}

// ClearAll removes every row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	db := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	for _, table := range []string{"likes", "comments", "blog_tags", "blog_categories"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for _, model := range []any{&models.Blog{}, &models.Tag{}, &models.Category{}, &models.User{}} {
		if err := db.Delete(model).Error; err != nil {
			return fmt.Errorf("clear %T: %w", model, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(tx *gorm.DB, fixture []FixtureUser, students int, hash string) ([]*models.User, error) {
	users := make([]*models.User, 0, len(fixture)+students)
	for _, fu := range fixture {
		u := &models.User{}
		err := tx.Where(models.User{Email: fu.Email}).
			Attrs(models.User{Name: fu.Name, Role: fu.Role, Password: hash}).
			FirstOrCreate(u).Error
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}

	for i := 0; i < students; i++ {
		u := &models.User{
			Name:     s.fake.Name(),
			Email:    fmt.Sprintf("student%d.%s@example.com", i+1, s.fake.LetterN(6)),
			Password: hash,
			Role:     models.RoleStudent,
		}
		if err := tx.Create(u).Error; err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func (s *Seeder) seedTaxonomy(tx *gorm.DB, fixture *Fixture) (map[string]models.Category, map[string]models.Tag, error) {
	categories := make(map[string]models.Category, len(fixture.Categories))
	for _, c := range fixture.Categories {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
			return nil, nil, err
		}
		var stored models.Category
		if err := tx.Where("slug = ?", c.Slug).First(&stored).Error; err != nil {
			return nil, nil, err
		}
		categories[stored.Slug] = stored
	}

	tags := make(map[string]models.Tag, len(fixture.Tags))
	for _, t := range fixture.Tags {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&t).Error; err != nil {
			return nil, nil, err
		}
		var stored models.Tag
		if err := tx.Where("slug = ?", t.Slug).First(&stored).Error; err != nil {
			return nil, nil, err
		}
		tags[stored.Slug] = stored
	}
	return categories, tags, nil
}

func (s *Seeder) seedFixtureBlogs(
	tx *gorm.DB,
	fixture []FixtureBlog,
	authors map[string]*models.User,
	categories map[string]models.Category,
	tags map[string]models.Tag,
) ([]*models.Blog, error) {
	blogs := make([]*models.Blog, 0, len(fixture))
	for _, fb := range fixture {
		author, ok := authors[fb.Author]
		if !ok {
			return nil, fmt.Errorf("blog %q: unknown author %s", fb.Slug, fb.Author)
		}

		var existing models.Blog
		err := tx.Where("slug = ?", fb.Slug).First(&existing).Error
		if err == nil {
			blogs = append(blogs, &existing)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		blog := &models.Blog{
			UserID:          author.ID,
			Title:           fb.Title,
			Content:         fb.Content,
			Excerpt:         content.MakeExcerpt(fb.Content, content.DefaultExcerptLength),
			FormatType:      models.FormatMarkdown,
			Status:          lo.Ternary(fb.Status == "", models.BlogStatusDraft, fb.Status),
			MetaTitle:       lo.EmptyableToPtr(fb.MetaTitle),
			MetaDescription: lo.EmptyableToPtr(fb.MetaDescription),
			Slug:            lo.ToPtr(fb.Slug),
			ViewCount:       uint(s.fake.Number(30, 200)),
			Version:         1,
			AllowComments:   lo.FromPtrOr(fb.AllowComments, true),
			Categories: lo.FilterMap(fb.Categories, func(slug string, _ int) (models.Category, bool) {
				c, ok := categories[slug]
				return c, ok
			}),
			Tags: lo.FilterMap(fb.Tags, func(slug string, _ int) (models.Tag, bool) {
				t, ok := tags[slug]
				return t, ok
			}),
		}
		if err := tx.Create(blog).Error; err != nil {
			return nil, err
		}
		blogs = append(blogs, blog)
	}
	return blogs, nil
}

func (s *Seeder) generateBlogs(tx *gorm.DB, users []*models.User, n int, categories []models.Category, tags []models.Tag) ([]*models.Blog, error) {
	if len(users) == 0 {
		return nil, nil
	}
	blogs := make([]*models.Blog, 0, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		author := users[s.fake.Number(0, len(users)-1)]
		title := s.fake.Sentence(s.fake.Number(3, 8))
		body := fmt.Sprintf("# %s\n\n%s", title, s.fake.Paragraph(3, 4, 12, "\n\n"))
		created := now.Add(-time.Duration(s.fake.Number(1, 60*24)) * time.Hour)

		blog := &models.Blog{
			UserID:        author.ID,
			Title:         title,
			Content:       body,
			Excerpt:       content.MakeExcerpt(body, content.DefaultExcerptLength),
			FormatType:    models.FormatMarkdown,
			Status:        lo.Ternary(s.fake.Number(1, 10) <= 8, models.BlogStatusPublished, models.BlogStatusDraft),
			Slug:          lo.ToPtr(fmt.Sprintf("%s-%d", content.Slugify(title), i+1)),
			ViewCount:     uint(s.fake.Number(0, 300)),
			Version:       1,
			AllowComments: s.fake.Number(1, 10) <= 9,
			Categories:    pick(s.fake, categories, 1),
			Tags:          pick(s.fake, tags, 3),
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		if err := tx.Create(blog).Error; err != nil {
			return nil, err
		}
		blogs = append(blogs, blog)
	}
	return blogs, nil
}

// generateComments adds top-level comments with a few replies each.
func (s *Seeder) generateComments(tx *gorm.DB, users []*models.User, blogs []*models.Blog, maxPerBlog int) (int, error) {
	if len(users) == 0 || maxPerBlog <= 0 {
		return 0, nil
	}
	count := 0
	for _, blog := range blogs {
		for i := s.fake.Number(0, maxPerBlog); i > 0; i-- {
			top := &models.Comment{
				BlogID:     blog.ID,
				UserID:     users[s.fake.Number(0, len(users)-1)].ID,
				Content:    s.fake.Sentence(s.fake.Number(5, 20)),
				IsApproved: true,
			}
			if err := tx.Create(top).Error; err != nil {
				return count, err
			}
			count++

			for j := s.fake.Number(0, 2); j > 0; j-- {
				reply := &models.Comment{
					BlogID:     blog.ID,
					UserID:     users[s.fake.Number(0, len(users)-1)].ID,
					ParentID:   &top.ID,
					Content:    s.fake.Sentence(s.fake.Number(3, 12)),
					IsApproved: true,
				}
				if err := tx.Create(reply).Error; err != nil {
					return count, err
				}
				count++
			}
		}
	}
	return count, nil
}

func (s *Seeder) generateLikes(tx *gorm.DB, users []*models.User, blogs []*models.Blog) (int, error) {
	count := 0
	for _, blog := range blogs {
		for _, u := range pick(s.fake, users, len(users)/2) {
			like := &models.Like{UserID: u.ID, BlogID: blog.ID}
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(like)
			if res.Error != nil {
				return count, res.Error
			}
			count += int(res.RowsAffected)
		}
	}
	return count, nil
}

// pick returns up to n distinct random elements of items.
func pick[T any](fake *gofakeit.Faker, items []T, n int) []T {
	if n <= 0 || len(items) == 0 {
		return nil
	}
	shuffled := append([]T(nil), items...)
	fake.ShuffleAnySlice(shuffled)
	return shuffled[:min(n, len(shuffled))]
}
