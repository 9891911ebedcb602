package server

import (
	"classblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments handles GET /api/blogs/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	threads, err := s.commentService.ListComments(c.UserContext(), currentUser(c), blogID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(threads)
}

// CreateComment handles POST /api/blogs/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	blogID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.CreateCommentInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	comment, err := s.commentService.CreateComment(c.UserContext(), currentUser(c), blogID, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req service.UpdateCommentInput
	if err := c.BodyParser(&req); err != nil {
		return badRequestBody(c)
	}

	comment, err := s.commentService.UpdateComment(c.UserContext(), currentUser(c), id, req)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.DeleteComment(c.UserContext(), currentUser(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted successfully"})
}
