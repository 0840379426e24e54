// internal/domain/identity/dto.go
package identity

// RegisterRequest for account registration
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name"`
	Platform    string `json:"platform" binding:"required,oneof=web ios android"`
	AuthorityID string `json:"authority_id" binding:"required"`
	IPAddress   string `json:"-"`
}

// LoginRequest for password login
type LoginRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	Platform    string `json:"platform" binding:"required,oneof=web ios android"`
	AuthorityID string `json:"authority_id" binding:"required"`
	IPAddress   string `json:"-"`
}

// RefreshRequest carries the refresh token to rotate
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// UserPayload is the caller-visible identity summary inside a session bundle.
type UserPayload struct {
	ID          int64    `json:"id"`
	Email       string   `json:"email,omitempty"`
	DisplayName string   `json:"display_name,omitempty"`
	AuthorityID string   `json:"authority_id"`
	RoleIDs     []int64  `json:"role_ids"`
	RoleNames   []string `json:"role_names"`
}

// SessionData is returned on register, login and refresh.
type SessionData struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int64       `json:"expires_in"`
	User         UserPayload `json:"user"`
}

// UpdateUserRequest for profile updates
type UpdateUserRequest struct {
	DisplayName *string                `json:"display_name"`
	Email       *string                `json:"email"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// UpdateStatusRequest toggles an account's status
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}

// AssignRoleRequest attaches a role to a user
type AssignRoleRequest struct {
	RoleID int64 `json:"role_id" binding:"required"`
}
