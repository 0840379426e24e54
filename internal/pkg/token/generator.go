// internal/pkg/token/generator.go
package token

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

const (
	// DefaultAccessTTL is used when no access token TTL is configured.
	DefaultAccessTTL = time.Hour
	// DefaultRefreshTTL is used when no refresh token TTL is configured.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

type Generator struct {
	priv       *rsa.PrivateKey
	issuer     string
	audience   string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewGenerator(priv *rsa.PrivateKey, issuer, audience string, accessTTL, refreshTTL time.Duration) *Generator {
	if accessTTL == 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL == 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Generator{
		priv:       priv,
		issuer:     issuer,
		audience:   audience,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Sign creates a signed token for the given payload and TTL.
func (g *Generator) Sign(payload Payload, ttl time.Duration) (string, error) {
	if g.priv == nil {
		return "", fmt.Errorf("token generator has nil private key")
	}

	now := time.Now()
	claims := &Claims{
		Payload: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    g.issuer,
			Subject:   fmt.Sprintf("%d", payload.IdentityID),
			Audience:  []string{g.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return tok.SignedString(g.priv)
}

// AccessToken signs an access token with the configured access TTL.
func (g *Generator) AccessToken(payload Payload) (string, error) {
	return g.Sign(payload, g.accessTTL)
}

// RefreshToken signs a refresh token with the configured refresh TTL.
func (g *Generator) RefreshToken(payload Payload) (string, error) {
	return g.Sign(payload, g.refreshTTL)
}

// AccessTTL reports the configured access token lifetime.
func (g *Generator) AccessTTL() time.Duration {
	return g.accessTTL
}
