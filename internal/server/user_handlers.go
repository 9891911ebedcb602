package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

// GetDashboard handles GET /api/dashboard
func (s *Server) GetDashboard(c *fiber.Ctx) error {
	dashboard, err := s.dashboardService.GetDashboard(c.UserContext(), currentUser(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(dashboard)
}
