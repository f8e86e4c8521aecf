package http

import (
	"strings"
	"time"

	"chessd/internal/server/core"

	"github.com/gofiber/fiber/v2"
	"github.com/lixenwraith/auth"
)

// TokenValidator verifies a bearer token and returns its subject and claims
type TokenValidator func(token string) (string, map[string]any, error)

const userIDKey = "userID"

// NewTokenValidator checks HS256 tokens signed with secret
func NewTokenValidator(secret []byte) TokenValidator {
	return func(token string) (string, map[string]any, error) {
		return auth.ValidateHS256Token(secret, token)
	}
}

// IssueToken signs a bearer token for subject
func IssueToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	claims := map[string]any{
		"scope": "games",
	}
	return auth.GenerateHS256Token(secret, subject, claims, ttl)
}

// AuthRequired rejects requests without a valid bearer token
func AuthRequired(validateToken TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := extractBearerToken(c.Get("Authorization"))
		if token == "" {
			return newAPIError(fiber.StatusUnauthorized, core.ErrUnauthorized, "missing authorization token", "")
		}

		userID, _, err := validateToken(token)
		if err != nil {
			return newAPIError(fiber.StatusUnauthorized, core.ErrUnauthorized, "invalid or expired token", "")
		}

		c.Locals(userIDKey, userID)
		return c.Next()
	}
}

// extractBearerToken extracts the token from an Authorization header
func extractBearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
