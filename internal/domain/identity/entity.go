// internal/domain/identity/entity.go
package identity

import (
	"database/sql"
	"time"
)

// Identity statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Credential providers.
const (
	ProviderPassword = "id_password"
	ProviderGoogle   = "google"
)

// Credential platforms.
const (
	PlatformWeb     = "web"
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)

// Identity is the durable user record, distinct from a Credential (one login
// method) and from a Role (a grantable permission label).
type Identity struct {
	ID          int64                  `json:"id" db:"id"`
	Email       sql.NullString         `json:"email" db:"email"`
	DisplayName sql.NullString         `json:"display_name" db:"display_name"`
	Status      string                 `json:"status" db:"status"` // active, inactive
	Metadata    map[string]interface{} `json:"metadata" db:"metadata"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the identity may authenticate.
func (i *Identity) IsActive() bool {
	return i.Status == StatusActive
}

// Credential is one login method belonging to exactly one identity. An
// identity may hold several credentials across providers and platforms.
type Credential struct {
	ID             int64          `json:"id" db:"id"`
	IdentityID     int64          `json:"identity_id" db:"identity_id"`
	Provider       string         `json:"provider" db:"provider"`
	Platform       string         `json:"platform" db:"platform"`
	ProviderUserID string         `json:"provider_user_id" db:"provider_user_id"`
	PasswordHash   sql.NullString `json:"-" db:"password_hash"` // password provider only
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}

// Role is a grantable permission label owned by one authority. Role names are
// unique within an authority, not globally.
type Role struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	AuthorityID string    `json:"authority_id" db:"authority_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// IdentityRole links one identity to one role. No duplicate pairs.
type IdentityRole struct {
	IdentityID int64     `json:"identity_id" db:"identity_id"`
	RoleID     int64     `json:"role_id" db:"role_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
