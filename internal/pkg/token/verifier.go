// internal/pkg/token/verifier.go
package token

import (
	"crypto/rsa"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Token layer error taxonomy. Callers translate these at the request boundary.
var (
	// ErrTokenExpired indicates the token is past its expiry. The boundary is
	// inclusive: a token is already expired at the exact expiry instant, and
	// valid strictly before it.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid indicates a signature, issuer or audience mismatch, or
	// a structurally malformed token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenVerificationFailed covers any other parse or verification error.
	ErrTokenVerificationFailed = errors.New("token verification failed")
)

type Verifier struct {
	pub      *rsa.PublicKey
	issuer   string
	audience string
}

func NewVerifier(pub *rsa.PublicKey, issuer, audience string) *Verifier {
	return &Verifier{
		pub:      pub,
		issuer:   issuer,
		audience: audience,
	}
}

// Verify validates signature, issuer, audience and expiry, and returns the
// decoded claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if v.pub == nil {
		return nil, fmt.Errorf("token verifier has nil public key: %w", ErrTokenVerificationFailed)
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.pub, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed),
			errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenInvalid
		default:
			return nil, ErrTokenVerificationFailed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenInvalid
	}

	if claims.Issuer != v.issuer {
		return nil, ErrTokenInvalid
	}
	if !claims.VerifyAudience(v.audience, true) {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
