// internal/middleware/rolecheck_middleware.go
package middleware

import (
	"serverkit-service/internal/pkg/response"
	"serverkit-service/internal/pkg/roletree"

	"github.com/gin-gonic/gin"
)

type RoleCheckMiddleware struct {
	tree *roletree.Tree

	// failClosed denies requests whose path did not fully match a tree
	// node and carried no inherited requirements. The default is to let
	// such requests through as unrestricted.
	failClosed bool
}

func NewRoleCheckMiddleware(tree *roletree.Tree, failClosed bool) *RoleCheckMiddleware {
	return &RoleCheckMiddleware{tree: tree, failClosed: failClosed}
}

// Check authorizes the request against the role tree. Must run after Auth
// and RequestContext; it reads the principal from the request scope, never
// from the token directly.
func (m *RoleCheckMiddleware) Check() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqs, exact := m.tree.Resolve(c.Request.URL.Path, c.Request.Method)

		if len(reqs) == 0 {
			if m.failClosed && !exact {
				response.Forbidden(c)
				return
			}
			c.Next()
			return
		}

		principal, ok := GetPrincipal(c)
		if !ok {
			response.Forbidden(c)
			return
		}

		for _, req := range reqs {
			if req.AuthorityID != principal.AuthorityID {
				continue
			}
			if len(req.RoleIDs) == 0 {
				c.Next()
				return
			}
			for _, id := range req.RoleIDs {
				if principal.HasRoleID(id) {
					c.Next()
					return
				}
			}
			response.Forbidden(c)
			return
		}

		// Requirements exist but none for the caller's authority.
		response.Forbidden(c)
	}
}
