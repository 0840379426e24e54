// internal/service/auth/auth.go
package auth

import (
	"context"
	"database/sql"
	"fmt"

	"serverkit-service/internal/domain/identity"
	xerrors "serverkit-service/internal/pkg/errors"
	"serverkit-service/internal/pkg/hasher"
	"serverkit-service/internal/pkg/token"

	"go.uber.org/zap"
)

// LoginLimiter throttles repeated login attempts per IP/email pair.
type LoginLimiter interface {
	CheckLoginAttempt(ctx context.Context, ipAddress, email string) (bool, int64, error)
	ResetLoginAttempts(ctx context.Context, ipAddress, email string) error
}

type AuthService struct {
	store   identity.Store
	tokens  *token.Manager
	hasher  hasher.PasswordHasher
	limiter LoginLimiter
	logger  *zap.Logger
}

func NewAuthService(
	store identity.Store,
	tokens *token.Manager,
	hasher hasher.PasswordHasher,
	limiter LoginLimiter,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		store:   store,
		tokens:  tokens,
		hasher:  hasher,
		limiter: limiter,
		logger:  logger,
	}
}

// ========== Registration ==========

// Register creates a new identity with a password credential and logs it in.
func (s *AuthService) Register(ctx context.Context, req *identity.RegisterRequest) (*identity.SessionData, error) {
	// Check if email already exists
	if _, err := s.store.FindIdentityByEmail(ctx, req.Email); err == nil {
		return nil, xerrors.ErrDuplicateEntry
	} else if !xerrors.Is(err, xerrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	ident := &identity.Identity{
		Email:       sql.NullString{String: req.Email, Valid: true},
		DisplayName: sql.NullString{String: req.DisplayName, Valid: req.DisplayName != ""},
		Status:      identity.StatusActive,
	}
	if err := s.store.CreateIdentity(ctx, ident); err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	cred := &identity.Credential{
		IdentityID:     ident.ID,
		Provider:       identity.ProviderPassword,
		Platform:       req.Platform,
		ProviderUserID: req.Email,
		PasswordHash:   sql.NullString{String: hashedPassword, Valid: true},
	}
	if err := s.store.CreateCredential(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	// New accounts start without roles; assignment happens separately.
	return s.sessionFor(ident, req.AuthorityID, nil)
}

// ========== Login ==========

// Login authenticates an identity with email/password.
func (s *AuthService) Login(ctx context.Context, req *identity.LoginRequest) (*identity.SessionData, error) {
	if s.limiter != nil {
		allowed, _, err := s.limiter.CheckLoginAttempt(ctx, req.IPAddress, req.Email)
		if err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}
		if !allowed {
			return nil, xerrors.ErrRateLimited
		}
	}

	ident, err := s.store.FindIdentityByEmail(ctx, req.Email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if !ident.IsActive() {
		return nil, xerrors.ErrUserNotFoundOrInactive
	}

	cred, err := s.findPasswordCredential(ctx, ident.ID, req.Platform)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Verify(req.Password, cred.PasswordHash.String) {
		return nil, xerrors.ErrInvalidCredentials
	}

	if err := s.store.TouchLastLogin(ctx, ident.ID); err != nil {
		s.logger.Error("failed to update last login", zap.Error(err))
	}
	if s.limiter != nil {
		if err := s.limiter.ResetLoginAttempts(ctx, req.IPAddress, req.Email); err != nil {
			s.logger.Error("failed to reset login attempts", zap.Error(err))
		}
	}

	roles, err := s.store.IdentityRoles(ctx, ident.ID, req.AuthorityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return s.sessionFor(ident, req.AuthorityID, roles)
}

// findPasswordCredential prefers the credential matching the requested
// platform, falling back to any password credential.
func (s *AuthService) findPasswordCredential(ctx context.Context, identityID int64, platform string) (*identity.Credential, error) {
	creds, err := s.store.FindCredentials(ctx, identityID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find credentials: %w", err)
	}
	var fallback *identity.Credential
	for _, c := range creds {
		if c.Provider != identity.ProviderPassword || !c.PasswordHash.Valid {
			continue
		}
		if c.Platform == platform {
			return c, nil
		}
		if fallback == nil {
			fallback = c
		}
	}
	if fallback == nil {
		return nil, xerrors.ErrInvalidCredentials
	}
	return fallback, nil
}

// ========== Refresh ==========

// Refresh verifies a refresh token and issues a brand-new token pair.
// Rotation is claim-based: the presented token stays valid until its
// expiry, so a concurrent refresh with the same token also succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*identity.SessionData, error) {
	claims, err := s.tokens.Verifier.Verify(refreshToken)
	if err != nil {
		return nil, err
	}

	ident, err := s.store.FindIdentityByID(ctx, claims.IdentityID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrUserNotFoundOrInactive
		}
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}
	if !ident.IsActive() {
		return nil, xerrors.ErrUserNotFoundOrInactive
	}

	// Roles are re-read so a rotated pair reflects assignments made
	// after the original login.
	roles, err := s.store.IdentityRoles(ctx, ident.ID, claims.AuthorityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get roles: %w", err)
	}
	return s.sessionFor(ident, claims.AuthorityID, roles)
}

// ========== Verification ==========

// Verify checks a token's signature and registered claims.
func (s *AuthService) Verify(tokenString string) (*token.Claims, error) {
	return s.tokens.Verifier.Verify(tokenString)
}

// ========== Helpers ==========

func (s *AuthService) sessionFor(ident *identity.Identity, authorityID string, roles []*identity.Role) (*identity.SessionData, error) {
	roleIDs := make([]int64, 0, len(roles))
	roleNames := make([]string, 0, len(roles))
	for _, r := range roles {
		roleIDs = append(roleIDs, r.ID)
		roleNames = append(roleNames, r.Name)
	}

	payload := token.Payload{
		IdentityID:  ident.ID,
		AuthorityID: authorityID,
		RoleIDs:     roleIDs,
		RoleNames:   roleNames,
	}

	accessToken, err := s.tokens.Generator.AccessToken(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokens.Generator.RefreshToken(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &identity.SessionData{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.tokens.Generator.AccessTTL().Seconds()),
		User: identity.UserPayload{
			ID:          ident.ID,
			Email:       ident.Email.String,
			DisplayName: ident.DisplayName.String,
			AuthorityID: authorityID,
			RoleIDs:     roleIDs,
			RoleNames:   roleNames,
		},
	}, nil
}
