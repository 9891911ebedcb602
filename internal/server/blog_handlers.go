package server

import (
	"classblog/internal/content"
	"classblog/internal/models"
	"classblog/internal/policy"
	"classblog/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
)

// blogResponse adds the public image URL to a blog.
type blogResponse struct {
	*models.Blog
	ImageURL string `json:"image_url,omitempty"`
}

func (s *Server) blogView(b *models.Blog) blogResponse {
	return blogResponse{Blog: b, ImageURL: s.store.URL(b.ImagePath)}
}

type blogDetailResponse struct {
	Blog        blogResponse           `json:"blog"`
	IsLiked     bool                   `json:"is_liked"`
	Permissions policy.BlogPermissions `json:"permissions"`
	Comments    []content.ThreadNode   `json:"comments"`
}

// blogRequest is the create/update payload, sent as JSON or multipart form.
type blogRequest struct {
	service.BlogInput
	Version *uint `json:"version"`
}

// GetBlogs handles GET /api/blogs
func (s *Server) GetBlogs(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	result, err := s.blogService.ListBlogs(c.UserContext(), currentUser(c), service.ListBlogsInput{
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"blogs":  lo.Map(result.Blogs, func(b *models.Blog, _ int) blogResponse { return s.blogView(b) }),
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}

// GetBlog handles GET /api/blogs/:id
func (s *Server) GetBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	detail, err := s.blogService.GetBlog(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(blogDetailResponse{
		Blog:        s.blogView(detail.Blog),
		IsLiked:     detail.IsLiked,
		Permissions: detail.Permissions,
		Comments:    detail.Comments,
	})
}

// CreateBlog handles POST /api/blogs
func (s *Server) CreateBlog(c *fiber.Ctx) error {
	req, err := s.parseBlogRequest(c)
	if err != nil {
		return nil
	}

	blog, err := s.blogService.CreateBlog(c.UserContext(), currentUser(c),
		service.CreateBlogInput{BlogInput: req.BlogInput})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.blogView(blog))
}

// UpdateBlog handles PUT /api/blogs/:id
func (s *Server) UpdateBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	req, err := s.parseBlogRequest(c)
	if err != nil {
		return nil
	}

	blog, err := s.blogService.UpdateBlog(c.UserContext(), currentUser(c), id,
		service.UpdateBlogInput{BlogInput: req.BlogInput, Version: req.Version})
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(s.blogView(blog))
}

// DeleteBlog handles DELETE /api/blogs/:id
func (s *Server) DeleteBlog(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.blogService.DeleteBlog(c.UserContext(), currentUser(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"message":  "Blog deleted successfully",
		"redirect": service.BlogsPath,
	})
}

// ToggleLike handles POST /api/blogs/:id/like
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.blogService.ToggleLike(c.UserContext(), currentUser(c), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// parseBlogRequest reads a JSON body or a multipart form with an optional
// "image" file. On failure it writes a 400 response and returns
// errResponseWritten.
func (s *Server) parseBlogRequest(c *fiber.Ctx) (*blogRequest, error) {
	var req blogRequest
	if !isMultipart(c) {
		if err := c.BodyParser(&req); err != nil {
			_ = badRequestBody(c)
			return nil, errResponseWritten
		}
		return &req, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		_ = badRequestBody(c)
		return nil, errResponseWritten
	}

	req.Title, _ = formValue(form, "title")
	req.Content, _ = formValue(form, "content")
	req.FormatType, _ = formValue(form, "format_type")
	req.Status, _ = formValue(form, "status")
	req.MetaTitle = formStringPtr(form, "meta_title")
	req.MetaDescription = formStringPtr(form, "meta_description")
	if slug := formStringPtr(form, "slug"); slug != nil && *slug != "" {
		req.Slug = slug
	}
	req.Tags = formValues(form, "tags")

	var parseErr error
	if req.AllowComments, parseErr = formBoolPtr(form, "allow_comments"); parseErr != nil {
		return nil, s.fieldError(c, "allow_comments", "The allow comments field must be true or false.")
	}
	if req.IsFeatured, parseErr = formBoolPtr(form, "is_featured"); parseErr != nil {
		return nil, s.fieldError(c, "is_featured", "The is featured field must be true or false.")
	}
	if req.CategoryIDs, parseErr = formUints(form, "category_ids"); parseErr != nil {
		return nil, s.fieldError(c, "category_ids", "The selected category ids is invalid.")
	}
	if v, ok := formValue(form, "version"); ok && v != "" {
		ids, err := formUints(form, "version")
		if err != nil || len(ids) != 1 {
			return nil, s.fieldError(c, "version", "The version must be an integer.")
		}
		req.Version = &ids[0]
	}

	if files := form.File["image"]; len(files) > 0 {
		data, err := readFormFile(files[0], int64(s.config.UploadMaxSizeKB)*1024)
		if err != nil {
			_ = badRequestBody(c)
			return nil, errResponseWritten
		}
		req.Image = &service.ImageUpload{Name: files[0].Filename, Data: data}
	}
	return &req, nil
}

func (s *Server) fieldError(c *fiber.Ctx, field, msg string) error {
	_ = respondServiceError(c, models.NewFieldValidationError(map[string]string{field: msg}))
	return errResponseWritten
}
