package server

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"classblog/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blogBody struct {
	models.Blog
	ImageURL string `json:"image_url"`
}

type blogDetailBody struct {
	Blog        blogBody `json:"blog"`
	IsLiked     bool     `json:"is_liked"`
	Permissions struct {
		CanEdit    bool `json:"can_edit"`
		CanDelete  bool `json:"can_delete"`
		CanComment bool `json:"can_comment"`
	} `json:"permissions"`
	Comments []struct {
		ID      uint   `json:"id"`
		Content string `json:"content"`
		Replies []struct {
			ID       uint   `json:"id"`
			ParentID uint   `json:"parent_id"`
			Content  string `json:"content"`
		} `json:"replies"`
	} `json:"comments"`
}

func (e *testEnv) createBlog(t *testing.T, token string, body map[string]any) blogBody {
	t.Helper()
	var blog blogBody
	resp := e.do(t, http.MethodPost, "/api/blogs", token, body, &blog)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return blog
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, method, path string, fields map[string][]string, image []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, vals := range fields {
		for _, v := range vals {
			require.NoError(t, w.WriteField(k, v))
		}
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "cover.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func TestCreateBlog_JSON(t *testing.T) {
	env := newTestEnv(t)
	student := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	tok := env.token(t, student)

	blog := env.createBlog(t, tok, map[string]any{
		"title":   "My First Post",
		"content": "# Hello\n\nThis is **markdown**.",
		"tags":    []string{"Go", "go", "Web Dev"},
	})

	assert.Equal(t, student.ID, blog.UserID)
	assert.Equal(t, models.BlogStatusDraft, blog.Status)
	assert.Equal(t, models.FormatMarkdown, blog.FormatType)
	assert.True(t, blog.AllowComments)
	require.NotNil(t, blog.Slug)
	assert.Equal(t, "my-first-post", *blog.Slug)
	assert.Equal(t, uint(1), blog.Version)
	assert.Len(t, blog.Tags, 2)
	assert.Empty(t, blog.ImageURL)
}

func TestCreateBlog_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))

	var body models.ErrorResponse
	resp := env.do(t, http.MethodPost, "/api/blogs", tok, map[string]any{
		"title":  "",
		"status": "archived",
	}, &body)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, body.Code)
	assert.Contains(t, body.Fields, "title")
	assert.Contains(t, body.Fields, "content")
	assert.Equal(t, "The selected status is invalid.", body.Fields["status"])
}

func TestCreateBlog_BadBody(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))

	req := httptest.NewRequest(http.MethodPost, "/api/blogs", strings.NewReader("{not json"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp := env.send(t, req, tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateBlog_MultipartWithImage(t *testing.T) {
	env := newTestEnv(t)
	teacher := env.user(t, "Sarah Teacher", "sarah@example.com", models.RoleTeacher)
	tok := env.token(t, teacher)

	var category models.Category
	resp := env.do(t, http.MethodPost, "/api/categories", tok, map[string]string{"name": "Science"}, &category)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req := multipartRequest(t, http.MethodPost, "/api/blogs", map[string][]string{
		"title":          {"Lab Report"},
		"content":        {"<p>Results</p>"},
		"format_type":    {"html"},
		"status":         {"published"},
		"allow_comments": {"0"},
		"is_featured":    {"on"},
		"category_ids[]": {fmt.Sprint(category.ID)},
		"tags[]":         {"chemistry", "lab"},
	}, pngBytes(t, 40, 20))

	var blog blogBody
	resp = env.send(t, req, tok, &blog)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, models.BlogStatusPublished, blog.Status)
	assert.False(t, blog.AllowComments)
	assert.True(t, blog.IsFeatured)
	require.Len(t, blog.Categories, 1)
	assert.Equal(t, "Science", blog.Categories[0].Name)
	assert.Len(t, blog.Tags, 2)
	require.NotEmpty(t, blog.ImageURL)
	assert.True(t, strings.HasPrefix(blog.ImageURL, "/uploads/"))

	img := env.send(t, httptest.NewRequest(http.MethodGet, blog.ImageURL, nil), "", nil)
	assert.Equal(t, http.StatusOK, img.StatusCode)
}

func TestCreateBlog_MultipartRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))

	req := multipartRequest(t, http.MethodPost, "/api/blogs", map[string][]string{
		"title":   {"Essay"},
		"content": {"text"},
	}, []byte("plain text, not an image"))

	var body models.ErrorResponse
	resp := env.send(t, req, tok, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body.Fields, "image")
}

func TestCreateBlog_MultipartBadBool(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))

	req := multipartRequest(t, http.MethodPost, "/api/blogs", map[string][]string{
		"title":          {"Essay"},
		"content":        {"text"},
		"allow_comments": {"maybe"},
	}, nil)

	var body models.ErrorResponse
	resp := env.send(t, req, tok, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body.Fields, "allow_comments")
}

func TestGetBlog_DraftVisibility(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	other := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	teacher := env.user(t, "Mike Teacher", "mike@example.com", models.RoleTeacher)

	draft := env.createBlog(t, env.token(t, author), map[string]any{
		"title": "Unfinished", "content": "draft body",
	})
	path := fmt.Sprintf("/api/blogs/%d", draft.ID)

	var denied models.ErrorResponse
	resp := env.do(t, http.MethodGet, path, env.token(t, other), nil, &denied)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "/api/blogs", denied.Redirect)

	var detail blogDetailBody
	resp = env.do(t, http.MethodGet, path, env.token(t, teacher), nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, detail.Permissions.CanEdit)
	assert.True(t, detail.Permissions.CanDelete)
	assert.Equal(t, uint(1), detail.Blog.ViewCount)

	resp = env.do(t, http.MethodGet, path, env.token(t, author), nil, &detail)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint(1), detail.Blog.ViewCount, "owner views are not counted")
	assert.Equal(t, "draft body", detail.Blog.Excerpt)
}

func TestGetBlog_NotFoundAndBadID(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))

	resp := env.do(t, http.MethodGet, "/api/blogs/999", tok, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body models.ErrorResponse
	resp = env.do(t, http.MethodGet, "/api/blogs/abc", tok, nil, &body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", body.Error)
}

func TestGetBlogs_Pagination(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	tok := env.token(t, author)
	for i := 0; i < 3; i++ {
		env.createBlog(t, tok, map[string]any{
			"title": fmt.Sprintf("Post %d", i), "content": "body", "status": "published",
		})
	}
	env.createBlog(t, tok, map[string]any{"title": "Hidden", "content": "body"})

	reader := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	var page struct {
		Blogs  []blogBody `json:"blogs"`
		Total  int64      `json:"total"`
		Limit  int        `json:"limit"`
		Offset int        `json:"offset"`
	}
	resp := env.do(t, http.MethodGet, "/api/blogs?limit=2", env.token(t, reader), nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Blogs, 2)
	assert.Equal(t, 2, page.Limit)

	teacher := env.user(t, "Mike Teacher", "mike@example.com", models.RoleTeacher)
	resp = env.do(t, http.MethodGet, "/api/blogs", env.token(t, teacher), nil, &page)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(4), page.Total)
}

func TestUpdateBlog(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	other := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	tok := env.token(t, author)

	blog := env.createBlog(t, tok, map[string]any{"title": "Original", "content": "first"})
	path := fmt.Sprintf("/api/blogs/%d", blog.ID)

	resp := env.do(t, http.MethodPut, path, env.token(t, other), map[string]any{
		"title": "Hijacked", "content": "nope",
	}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var updated blogBody
	resp = env.do(t, http.MethodPut, path, tok, map[string]any{
		"title": "Revised", "content": "second", "status": "published", "version": 1,
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Revised", updated.Title)
	assert.Equal(t, models.BlogStatusPublished, updated.Status)
	assert.Equal(t, uint(2), updated.Version)
	require.NotNil(t, updated.Slug)
	assert.Equal(t, "original", *updated.Slug)

	var conflict models.ErrorResponse
	resp = env.do(t, http.MethodPut, path, tok, map[string]any{
		"title": "Stale", "content": "third", "version": 1,
	}, &conflict)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeConflict, conflict.Code)
}

func TestUpdateBlog_MultipartVersion(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, env.user(t, "John Student", "john@example.com", models.RoleStudent))
	blog := env.createBlog(t, tok, map[string]any{"title": "Form Post", "content": "body"})
	path := fmt.Sprintf("/api/blogs/%d", blog.ID)

	req := multipartRequest(t, http.MethodPut, path, map[string][]string{
		"title": {"Form Post"}, "content": {"body"}, "version": {"x"},
	}, nil)
	var body models.ErrorResponse
	resp := env.send(t, req, tok, &body)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body.Fields, "version")

	req = multipartRequest(t, http.MethodPut, path, map[string][]string{
		"title": {"Form Post v2"}, "content": {"body"}, "version": {"1"},
	}, pngBytes(t, 10, 10))
	var updated blogBody
	resp = env.send(t, req, tok, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint(2), updated.Version)
	assert.NotEmpty(t, updated.ImageURL)
}

func TestDeleteBlog(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	teacher := env.user(t, "Emily Teacher", "emily@example.com", models.RoleTeacher)
	blog := env.createBlog(t, env.token(t, author), map[string]any{"title": "Delete me", "content": "x"})
	path := fmt.Sprintf("/api/blogs/%d", blog.ID)

	var body map[string]string
	resp := env.do(t, http.MethodDelete, path, env.token(t, teacher), nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/api/blogs", body["redirect"])

	resp = env.do(t, http.MethodGet, path, env.token(t, author), nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestToggleLike(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	reader := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	blog := env.createBlog(t, env.token(t, author), map[string]any{
		"title": "Likeable", "content": "x", "status": "published",
	})
	path := fmt.Sprintf("/api/blogs/%d/like", blog.ID)
	tok := env.token(t, reader)

	var result struct {
		Liked      bool  `json:"liked"`
		LikesCount int64 `json:"likes_count"`
	}
	resp := env.do(t, http.MethodPost, path, tok, nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, result.Liked)
	assert.Equal(t, int64(1), result.LikesCount)

	var detail blogDetailBody
	env.do(t, http.MethodGet, fmt.Sprintf("/api/blogs/%d", blog.ID), tok, nil, &detail)
	assert.True(t, detail.IsLiked)

	resp = env.do(t, http.MethodPost, path, tok, nil, &result)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, result.Liked)
	assert.Equal(t, int64(0), result.LikesCount)
}
