package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/mr-karan/mattermost-bridge/internal/metrics"
)

// handleHealth reports liveness.
// URL: GET /health
// Public endpoint - no authentication required
func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"app":    s.config.App.Name,
		"status": "ok",
	})
}

// handleMetrics serves Prometheus text exposition.
// URL: GET /metrics
func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4; charset=utf-8")
	metrics.Write(c)
	return nil
}

// handleWebhook dispatches an alert payload.
// URL: POST /webhook?auth_token=<token>
// Routing, rendering and delivery failures are logged and still answered with
// 200 so that providers do not retry. Only payloads that match no known
// provider are rejected.
func (s *Server) handleWebhook(c *fiber.Ctx) error {
	// fasthttp reuses the body buffer once the handler returns.
	raw := append([]byte(nil), c.Body()...)

	out := s.dispatcher.Dispatch(c.UserContext(), raw)
	if out.Unclassifiable() {
		return SendError(c, fiber.StatusUnprocessableEntity, "unrecognised alert payload")
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"dispatch_id": out.ID})
}
