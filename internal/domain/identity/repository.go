// internal/domain/identity/repository.go
package identity

import "context"

// IdentityUpdate carries the mutable identity fields. Nil pointers leave the
// column untouched.
type IdentityUpdate struct {
	Email       *string
	DisplayName *string
	Status      *string
	Metadata    map[string]interface{}
}

// Store is the persistence collaborator for identities, credentials and
// roles. Services depend on this interface only; the postgres implementation
// lives in the repository package.
type Store interface {
	FindIdentityByID(ctx context.Context, id int64) (*Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	FindIdentityByProviderUserID(ctx context.Context, providerUserID string) (*Identity, error)
	SearchIdentities(ctx context.Context, query string, limit, offset int) ([]*Identity, error)
	CreateIdentity(ctx context.Context, ident *Identity) error
	UpdateIdentity(ctx context.Context, id int64, update IdentityUpdate) (*Identity, error)
	DeleteIdentity(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64) error

	CreateCredential(ctx context.Context, cred *Credential) error
	FindCredentials(ctx context.Context, identityID int64) ([]*Credential, error)

	AssignRole(ctx context.Context, identityID, roleID int64) error
	RemoveRole(ctx context.Context, identityID, roleID int64) error
	FindRoleByID(ctx context.Context, roleID int64) (*Role, error)
	FindRolesByNames(ctx context.Context, names []string, authorityID string) ([]*Role, error)
	IdentityRoles(ctx context.Context, identityID int64, authorityID string) ([]*Role, error)
}
