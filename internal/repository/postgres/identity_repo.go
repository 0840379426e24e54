// internal/repository/postgres/identity_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"serverkit-service/internal/domain/identity"
	xerrors "serverkit-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// IdentityRepository is the postgres implementation of identity.Store.
type IdentityRepository struct {
	db *pgxpool.Pool
}

func NewIdentityRepository(db *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// ========== Identity Methods ==========

const identityColumns = `id, email, display_name, status, metadata, created_at, updated_at`

func scanIdentity(row pgx.Row) (*identity.Identity, error) {
	var ident identity.Identity
	err := row.Scan(
		&ident.ID, &ident.Email, &ident.DisplayName, &ident.Status,
		&ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan identity: %w", err)
	}
	return &ident, nil
}

func (r *IdentityRepository) FindIdentityByID(ctx context.Context, id int64) (*identity.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE id = $1`
	return scanIdentity(r.db.QueryRow(ctx, query, id))
}

func (r *IdentityRepository) FindIdentityByEmail(ctx context.Context, email string) (*identity.Identity, error) {
	query := `SELECT ` + identityColumns + ` FROM identities WHERE LOWER(email) = LOWER($1)`
	return scanIdentity(r.db.QueryRow(ctx, query, email))
}

func (r *IdentityRepository) FindIdentityByProviderUserID(ctx context.Context, providerUserID string) (*identity.Identity, error) {
	query := `
		SELECT i.id, i.email, i.display_name, i.status, i.metadata, i.created_at, i.updated_at
		FROM identities i
		JOIN credentials c ON c.identity_id = i.id
		WHERE c.provider_user_id = $1
	`
	return scanIdentity(r.db.QueryRow(ctx, query, providerUserID))
}

// SearchIdentities filters by a case-insensitive substring over email and
// display name. An empty query lists everyone, newest first.
func (r *IdentityRepository) SearchIdentities(ctx context.Context, query string, limit, offset int) ([]*identity.Identity, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `
		SELECT ` + identityColumns + `
		FROM identities
		WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR display_name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, q, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search identities: %w", err)
	}
	defer rows.Close()

	var idents []*identity.Identity
	for rows.Next() {
		var ident identity.Identity
		if err := rows.Scan(&ident.ID, &ident.Email, &ident.DisplayName, &ident.Status, &ident.Metadata, &ident.CreatedAt, &ident.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		idents = append(idents, &ident)
	}
	return idents, rows.Err()
}

func (r *IdentityRepository) CreateIdentity(ctx context.Context, ident *identity.Identity) error {
	query := `
		INSERT INTO identities (email, display_name, status, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	if ident.Metadata == nil {
		ident.Metadata = map[string]interface{}{}
	}

	err := r.db.QueryRow(ctx, query, ident.Email, ident.DisplayName, ident.Status, ident.Metadata).
		Scan(&ident.ID, &ident.CreatedAt, &ident.UpdatedAt)

	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	return err
}

func (r *IdentityRepository) UpdateIdentity(ctx context.Context, id int64, update identity.IdentityUpdate) (*identity.Identity, error) {
	set := "updated_at = now()"
	args := []interface{}{id}

	if update.Email != nil {
		args = append(args, *update.Email)
		set += fmt.Sprintf(", email = $%d", len(args))
	}
	if update.DisplayName != nil {
		args = append(args, *update.DisplayName)
		set += fmt.Sprintf(", display_name = $%d", len(args))
	}
	if update.Status != nil {
		args = append(args, *update.Status)
		set += fmt.Sprintf(", status = $%d", len(args))
	}
	if update.Metadata != nil {
		args = append(args, update.Metadata)
		set += fmt.Sprintf(", metadata = $%d", len(args))
	}

	query := `UPDATE identities SET ` + set + ` WHERE id = $1 RETURNING ` + identityColumns
	ident, err := scanIdentity(r.db.QueryRow(ctx, query, args...))
	if isUniqueViolation(err) {
		return nil, xerrors.ErrDuplicateEntry
	}
	return ident, err
}

// DeleteIdentity removes the identity row; credentials and identity_roles
// cascade at the schema level.
func (r *IdentityRepository) DeleteIdentity(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// TouchLastLogin records the login instant in the identity metadata.
func (r *IdentityRepository) TouchLastLogin(ctx context.Context, id int64) error {
	query := `
		UPDATE identities
		SET metadata = jsonb_set(COALESCE(metadata, '{}'::jsonb), '{last_login_at}', to_jsonb($2::timestamptz), true),
		    updated_at = now()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, id, time.Now())
	return err
}

// ========== Credential Methods ==========

func (r *IdentityRepository) CreateCredential(ctx context.Context, cred *identity.Credential) error {
	query := `
		INSERT INTO credentials (identity_id, provider, platform, provider_user_id, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		cred.IdentityID, cred.Provider, cred.Platform, cred.ProviderUserID, cred.PasswordHash,
	).Scan(&cred.ID, &cred.CreatedAt)

	if isUniqueViolation(err) {
		return xerrors.ErrDuplicateEntry
	}
	return err
}

func (r *IdentityRepository) FindCredentials(ctx context.Context, identityID int64) ([]*identity.Credential, error) {
	query := `
		SELECT id, identity_id, provider, platform, provider_user_id, password_hash, created_at
		FROM credentials
		WHERE identity_id = $1
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, identityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query credentials: %w", err)
	}
	defer rows.Close()

	var creds []*identity.Credential
	for rows.Next() {
		var c identity.Credential
		if err := rows.Scan(&c.ID, &c.IdentityID, &c.Provider, &c.Platform, &c.ProviderUserID, &c.PasswordHash, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan credential: %w", err)
		}
		creds = append(creds, &c)
	}
	return creds, rows.Err()
}

// ========== Role Methods ==========

func (r *IdentityRepository) AssignRole(ctx context.Context, identityID, roleID int64) error {
	query := `
		INSERT INTO identity_roles (identity_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (identity_id, role_id) DO NOTHING
	`
	_, err := r.db.Exec(ctx, query, identityID, roleID)
	return err
}

func (r *IdentityRepository) RemoveRole(ctx context.Context, identityID, roleID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM identity_roles WHERE identity_id = $1 AND role_id = $2`,
		identityID, roleID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

func (r *IdentityRepository) FindRoleByID(ctx context.Context, roleID int64) (*identity.Role, error) {
	query := `SELECT id, name, authority_id, created_at FROM roles WHERE id = $1`

	var role identity.Role
	err := r.db.QueryRow(ctx, query, roleID).Scan(&role.ID, &role.Name, &role.AuthorityID, &role.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return &role, nil
}

func (r *IdentityRepository) FindRolesByNames(ctx context.Context, names []string, authorityID string) ([]*identity.Role, error) {
	query := `
		SELECT id, name, authority_id, created_at
		FROM roles
		WHERE name = ANY($1) AND authority_id = $2
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query, pq.Array(names), authorityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles by names: %w", err)
	}
	defer rows.Close()

	return collectRoles(rows)
}

// IdentityRoles returns the identity's current roles within one authority.
func (r *IdentityRepository) IdentityRoles(ctx context.Context, identityID int64, authorityID string) ([]*identity.Role, error) {
	query := `
		SELECT r.id, r.name, r.authority_id, r.created_at
		FROM identity_roles ir
		JOIN roles r ON r.id = ir.role_id
		WHERE ir.identity_id = $1 AND r.authority_id = $2
		ORDER BY r.id
	`
	rows, err := r.db.Query(ctx, query, identityID, authorityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query identity roles: %w", err)
	}
	defer rows.Close()

	return collectRoles(rows)
}

func collectRoles(rows pgx.Rows) ([]*identity.Role, error) {
	var roles []*identity.Role
	for rows.Next() {
		var role identity.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.AuthorityID, &role.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &role)
	}
	return roles, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
