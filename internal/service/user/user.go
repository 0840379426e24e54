// internal/service/user/user.go
package user

import (
	"context"
	"fmt"

	"serverkit-service/internal/domain/identity"
	xerrors "serverkit-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type UserService struct {
	store  identity.Store
	logger *zap.Logger
}

func NewUserService(store identity.Store, logger *zap.Logger) *UserService {
	return &UserService{store: store, logger: logger}
}

// GetUser fetches an identity by id.
func (s *UserService) GetUser(ctx context.Context, id int64) (*identity.Identity, error) {
	ident, err := s.store.FindIdentityByID(ctx, id)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return ident, nil
}

// GetUserByEmail fetches an identity by email.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	ident, err := s.store.FindIdentityByEmail(ctx, email)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return ident, nil
}

// SearchUsers filters accounts by a substring over email and display name,
// with paging. An empty query pages through all accounts.
func (s *UserService) SearchUsers(ctx context.Context, query string, limit, offset int) ([]*identity.Identity, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	idents, err := s.store.SearchIdentities(ctx, query, limit, offset)
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to search users")
	}
	return idents, nil
}

// UpdateUser applies a partial update and returns the updated identity.
func (s *UserService) UpdateUser(ctx context.Context, id int64, req *identity.UpdateUserRequest) (*identity.Identity, error) {
	if req.Email == nil && req.DisplayName == nil && req.Metadata == nil {
		return nil, xerrors.ErrInvalidInput
	}

	if req.Email != nil {
		existing, err := s.store.FindIdentityByEmail(ctx, *req.Email)
		if err == nil && existing.ID != id {
			return nil, xerrors.ErrDuplicateEntry
		}
		if err != nil && !xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	updated, err := s.store.UpdateIdentity(ctx, id, identity.IdentityUpdate{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Metadata:    req.Metadata,
	})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return updated, nil
}

// UpdateStatus activates or deactivates an account. Deactivation does not
// revoke already issued tokens; login and refresh stop working immediately.
func (s *UserService) UpdateStatus(ctx context.Context, id int64, status string) (*identity.Identity, error) {
	if status != identity.StatusActive && status != identity.StatusInactive {
		return nil, xerrors.ErrInvalidInput
	}
	updated, err := s.store.UpdateIdentity(ctx, id, identity.IdentityUpdate{Status: &status})
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update status: %w", err)
	}
	s.logger.Info("account status changed", zap.Int64("identity_id", id), zap.String("status", status))
	return updated, nil
}

// DeleteUser removes an identity. Credentials and role assignments cascade
// at the schema level.
func (s *UserService) DeleteUser(ctx context.Context, id int64) error {
	if err := s.store.DeleteIdentity(ctx, id); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// AssignRole attaches a role to a user. Both sides must exist; assigning an
// already held role is a no-op.
func (s *UserService) AssignRole(ctx context.Context, identityID, roleID int64) error {
	if _, err := s.store.FindIdentityByID(ctx, identityID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}
	if _, err := s.store.FindRoleByID(ctx, roleID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to find role: %w", err)
	}
	if err := s.store.AssignRole(ctx, identityID, roleID); err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// RemoveRole detaches a role from a user.
func (s *UserService) RemoveRole(ctx context.Context, identityID, roleID int64) error {
	if err := s.store.RemoveRole(ctx, identityID, roleID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to remove role: %w", err)
	}
	return nil
}

// ListRoles reports the roles a user currently holds under an authority.
func (s *UserService) ListRoles(ctx context.Context, identityID int64, authorityID string) ([]*identity.Role, error) {
	if _, err := s.store.FindIdentityByID(ctx, identityID); err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	roles, err := s.store.IdentityRoles(ctx, identityID, authorityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}
