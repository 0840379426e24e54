// internal/middleware/auth_middleware.go
package middleware

import (
	"serverkit-service/internal/pkg/response"
	"serverkit-service/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

const claimsKey = "auth_claims"

type AuthMiddleware struct {
	verifier *token.Verifier
}

func NewAuthMiddleware(verifier *token.Verifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// Auth verifies the bearer token when one is presented. A request without an
// Authorization header passes through anonymously; whether it may proceed is
// decided later by the role check. A header that is present but unusable is
// rejected here.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		raw, ok := token.ExtractBearer(header)
		if !ok {
			response.Unauthorized(c, "malformed authorization header")
			return
		}

		claims, err := m.verifier.Verify(raw)
		if err != nil {
			response.Unauthorized(c, err.Error())
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// GetClaims returns the verified token claims set by Auth.
func GetClaims(c *gin.Context) (*token.Claims, bool) {
	v, exists := c.Get(claimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*token.Claims)
	return claims, ok
}
