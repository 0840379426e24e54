// internal/middleware/context_middleware.go
package middleware

import (
	"serverkit-service/internal/pkg/requestctx"

	"github.com/gin-gonic/gin"
	"github.com/oklog/ulid/v2"
)

const requestIDHeader = "X-Request-Id"

// RequestContext establishes the per-request scope: a correlation id and,
// when the request was authenticated, the caller principal. Must run after
// Auth so the principal reflects verified claims only.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = ulid.Make().String()
		}
		c.Writer.Header().Set(requestIDHeader, requestID)

		ctx := requestctx.WithRequestID(c.Request.Context(), requestID)
		if claims, ok := GetClaims(c); ok {
			ctx = requestctx.WithPrincipal(ctx, requestctx.Principal{
				IdentityID:  claims.IdentityID,
				AuthorityID: claims.AuthorityID,
				RoleIDs:     claims.RoleIDs,
				RoleNames:   claims.RoleNames,
			})
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetPrincipal returns the caller principal for the current request.
func GetPrincipal(c *gin.Context) (requestctx.Principal, bool) {
	return requestctx.PrincipalFromContext(c.Request.Context())
}

// GetRequestID returns the correlation id for the current request.
func GetRequestID(c *gin.Context) string {
	id, _ := requestctx.RequestIDFromContext(c.Request.Context())
	return id
}
