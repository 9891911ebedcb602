package server

import (
	"fmt"
	"net/http"
	"testing"

	"classblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_ThreadLifecycle(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	reader := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	authorTok, readerTok := env.token(t, author), env.token(t, reader)

	blog := env.createBlog(t, authorTok, map[string]any{
		"title": "Discuss", "content": "x", "status": "published",
	})
	commentsPath := fmt.Sprintf("/api/blogs/%d/comments", blog.ID)

	var top models.Comment
	resp := env.do(t, http.MethodPost, commentsPath, readerTok, map[string]any{"content": "Great post"}, &top)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, top.IsApproved)
	assert.Nil(t, top.ParentID)

	var reply models.Comment
	resp = env.do(t, http.MethodPost, commentsPath, authorTok, map[string]any{
		"content": "Thanks", "parent_id": top.ID,
	}, &reply)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, top.ID, *reply.ParentID)

	var nested models.Comment
	resp = env.do(t, http.MethodPost, commentsPath, readerTok, map[string]any{
		"content": "You're welcome", "parent_id": reply.ID,
	}, &nested)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotNil(t, nested.ParentID)
	assert.Equal(t, top.ID, *nested.ParentID, "replies to replies attach to the top-level comment")

	var threads []struct {
		ID      uint `json:"id"`
		Replies []struct {
			ID      uint   `json:"id"`
			Content string `json:"content"`
		} `json:"replies"`
	}
	resp = env.do(t, http.MethodGet, commentsPath, readerTok, nil, &threads)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, threads, 1)
	require.Len(t, threads[0].Replies, 2)
	assert.Equal(t, "Thanks", threads[0].Replies[0].Content)

	commentPath := fmt.Sprintf("/api/comments/%d", top.ID)
	resp = env.do(t, http.MethodPut, commentPath, authorTok, map[string]any{"content": "edited"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "blog authors cannot edit other people's comments")

	var edited models.Comment
	resp = env.do(t, http.MethodPut, commentPath, readerTok, map[string]any{"content": "Great post!"}, &edited)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Great post!", edited.Content)

	resp = env.do(t, http.MethodDelete, commentPath, readerTok, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodPut, commentPath, readerTok, map[string]any{"content": "again"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateComment_Rejections(t *testing.T) {
	env := newTestEnv(t)
	author := env.user(t, "John Student", "john@example.com", models.RoleStudent)
	reader := env.user(t, "Jane Student", "jane@example.com", models.RoleStudent)
	authorTok, readerTok := env.token(t, author), env.token(t, reader)

	closed := env.createBlog(t, authorTok, map[string]any{
		"title": "Closed", "content": "x", "status": "published", "allow_comments": false,
	})
	draft := env.createBlog(t, authorTok, map[string]any{"title": "Draft", "content": "x"})
	open := env.createBlog(t, authorTok, map[string]any{
		"title": "Open", "content": "x", "status": "published",
	})

	var disabled models.ErrorResponse
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/blogs/%d/comments", closed.ID), readerTok,
		map[string]any{"content": "hello"}, &disabled)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeCommentsDisabled, disabled.Code)
	assert.Equal(t, fmt.Sprintf("/api/blogs/%d", closed.ID), disabled.Redirect)

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/blogs/%d/comments", draft.ID), readerTok,
		map[string]any{"content": "hello"}, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/blogs/999/comments", readerTok,
		map[string]any{"content": "hello"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var invalid models.ErrorResponse
	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/blogs/%d/comments", open.ID), readerTok,
		map[string]any{"content": ""}, &invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The content field is required.", invalid.Fields["content"])

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/blogs/%d/comments", open.ID), readerTok,
		map[string]any{"content": "orphan", "parent_id": 4242}, &invalid)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "The selected parent id is invalid.", invalid.Fields["parent_id"])
}
