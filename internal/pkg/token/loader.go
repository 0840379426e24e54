// internal/pkg/token/loader.go
package token

import (
	"fmt"
	"time"
)

type Config struct {
	PrivPath   string
	PubPath    string
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Manager bundles the signing and verification halves of the token service.
// It holds no mutable state after construction; key material is immutable.
type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

func LoadAndBuild(cfg Config) (*Manager, error) {
	priv, err := LoadRSAPrivateKeyFromPEM(cfg.PrivPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load private key from %s: %w", cfg.PrivPath, err)
	}

	pub, err := LoadRSAPublicKeyFromPEM(cfg.PubPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load public key from %s: %w", cfg.PubPath, err)
	}

	gen := NewGenerator(priv, cfg.Issuer, cfg.Audience, cfg.AccessTTL, cfg.RefreshTTL)
	ver := NewVerifier(pub, cfg.Issuer, cfg.Audience)

	return &Manager{
		Generator: gen,
		Verifier:  ver,
	}, nil
}
