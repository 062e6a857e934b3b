package server

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
)

// requireAuthToken rejects requests whose auth_token query parameter does not
// exactly match the configured secret. An empty token never authenticates,
// even when no secret is configured.
func (s *Server) requireAuthToken(c *fiber.Ctx) error {
	if !tokenMatches(c.Query("auth_token"), s.config.Auth.Token) {
		c.Status(fiber.StatusUnauthorized)
		return nil
	}
	return c.Next()
}

func tokenMatches(got, want string) bool {
	if got == "" || want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
