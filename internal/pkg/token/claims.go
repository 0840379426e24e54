// internal/pkg/token/claims.go
package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Payload is the identity information carried by both access and refresh
// tokens. The two kinds share one shape and differ only in expiry policy;
// there is no embedded token-kind claim, so a verifier can only tell them
// apart by the context in which they are presented.
type Payload struct {
	IdentityID  int64    `json:"identity_id"`
	AuthorityID string   `json:"authority_id"`
	RoleIDs     []int64  `json:"role_ids"`
	RoleNames   []string `json:"role_names"`
}

// Claims represents the signed JWT claims.
type Claims struct {
	Payload
	jwt.RegisteredClaims
}

// HasRoleID checks if the claims contain a specific role id.
func (c *Claims) HasRoleID(id int64) bool {
	for _, r := range c.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

// HasRoleName checks if the claims contain a specific role name.
func (c *Claims) HasRoleName(name string) bool {
	for _, r := range c.RoleNames {
		if r == name {
			return true
		}
	}
	return false
}

// VerifyAudience checks if the expected audience is listed in the claims.
func (c *Claims) VerifyAudience(audience string, required bool) bool {
	if len(c.Audience) == 0 {
		return !required
	}

	for _, aud := range c.Audience {
		if aud == audience {
			return true
		}
	}

	return false
}
