package app

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"serverkit-service/internal/domain/file"
	"serverkit-service/internal/domain/identity"
	authHandler "serverkit-service/internal/handlers/auth"
	fileHandler "serverkit-service/internal/handlers/file"
	userHandler "serverkit-service/internal/handlers/user"
	"serverkit-service/internal/middleware"
	xerrors "serverkit-service/internal/pkg/errors"
	"serverkit-service/internal/pkg/hasher"
	"serverkit-service/internal/pkg/roletree"
	"serverkit-service/internal/pkg/token"
	authService "serverkit-service/internal/service/auth"
	fileService "serverkit-service/internal/service/file"
	userService "serverkit-service/internal/service/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memIdentityStore is an in-memory identity.Store backing the routed tests.
type memIdentityStore struct {
	mu          sync.Mutex
	nextID      int64
	identities  map[int64]*identity.Identity
	credentials map[int64][]*identity.Credential
	roles       map[int64]*identity.Role
	assignments map[int64][]int64
}

func newMemIdentityStore() *memIdentityStore {
	return &memIdentityStore{
		nextID:      1,
		identities:  make(map[int64]*identity.Identity),
		credentials: make(map[int64][]*identity.Credential),
		roles:       make(map[int64]*identity.Role),
		assignments: make(map[int64][]int64),
	}
}

func (m *memIdentityStore) FindIdentityByID(_ context.Context, id int64) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *ident
	return &cp, nil
}

func (m *memIdentityStore) FindIdentityByEmail(_ context.Context, email string) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ident := range m.identities {
		if ident.Email.Valid && ident.Email.String == email {
			cp := *ident
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memIdentityStore) FindIdentityByProviderUserID(_ context.Context, _ string) (*identity.Identity, error) {
	return nil, xerrors.ErrNotFound
}

func (m *memIdentityStore) SearchIdentities(_ context.Context, _ string, _, _ int) ([]*identity.Identity, error) {
	return nil, nil
}

func (m *memIdentityStore) CreateIdentity(_ context.Context, ident *identity.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident.ID = m.nextID
	m.nextID++
	ident.CreatedAt = time.Now()
	cp := *ident
	m.identities[ident.ID] = &cp
	return nil
}

func (m *memIdentityStore) UpdateIdentity(_ context.Context, id int64, update identity.IdentityUpdate) (*identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ident, ok := m.identities[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	if update.Email != nil {
		ident.Email = sql.NullString{String: *update.Email, Valid: true}
	}
	if update.DisplayName != nil {
		ident.DisplayName = sql.NullString{String: *update.DisplayName, Valid: true}
	}
	if update.Status != nil {
		ident.Status = *update.Status
	}
	cp := *ident
	return &cp, nil
}

func (m *memIdentityStore) DeleteIdentity(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[id]; !ok {
		return xerrors.ErrNotFound
	}
	delete(m.identities, id)
	return nil
}

func (m *memIdentityStore) TouchLastLogin(_ context.Context, _ int64) error { return nil }

func (m *memIdentityStore) CreateCredential(_ context.Context, cred *identity.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cred.ID = m.nextID
	m.nextID++
	cp := *cred
	m.credentials[cred.IdentityID] = append(m.credentials[cred.IdentityID], &cp)
	return nil
}

func (m *memIdentityStore) FindCredentials(_ context.Context, identityID int64) ([]*identity.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*identity.Credential(nil), m.credentials[identityID]...), nil
}

func (m *memIdentityStore) AssignRole(_ context.Context, identityID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assignments[identityID] = append(m.assignments[identityID], roleID)
	return nil
}

func (m *memIdentityStore) RemoveRole(_ context.Context, identityID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.assignments[identityID][:0]
	for _, id := range m.assignments[identityID] {
		if id != roleID {
			kept = append(kept, id)
		}
	}
	m.assignments[identityID] = kept
	return nil
}

func (m *memIdentityStore) FindRoleByID(_ context.Context, roleID int64) (*identity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[roleID]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return role, nil
}

func (m *memIdentityStore) FindRolesByNames(_ context.Context, _ []string, _ string) ([]*identity.Role, error) {
	return nil, nil
}

func (m *memIdentityStore) IdentityRoles(_ context.Context, identityID int64, authorityID string) ([]*identity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*identity.Role
	for _, roleID := range m.assignments[identityID] {
		role := m.roles[roleID]
		if role != nil && role.AuthorityID == authorityID {
			out = append(out, role)
		}
	}
	return out, nil
}

// memFileStore backs the file handler so the router can be built whole.
type memFileStore struct {
	rows map[string]*file.FileInfo
}

func (m *memFileStore) Create(_ context.Context, info *file.FileInfo) error {
	m.rows[info.ID] = info
	return nil
}

func (m *memFileStore) FindByID(_ context.Context, id string) (*file.FileInfo, error) {
	info, ok := m.rows[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	return info, nil
}

func (m *memFileStore) List(_ context.Context, _, _ int) ([]*file.FileInfo, error) {
	return nil, nil
}

func (m *memFileStore) Delete(_ context.Context, id string) error {
	delete(m.rows, id)
	return nil
}

// newTestRouter assembles the real router over in-memory stores, with
// /api/v1/users gated on role 1 under the "serverkit" authority.
func newTestRouter(t *testing.T) (*gin.Engine, *memIdentityStore) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	manager := &token.Manager{
		Generator: token.NewGenerator(key, "serverkit-auth", "serverkit-client", time.Hour, 7*24*time.Hour),
		Verifier:  token.NewVerifier(&key.PublicKey, "serverkit-auth", "serverkit-client"),
	}

	tree := roletree.New(&roletree.Node{
		Path: "/",
		Children: []*roletree.Node{
			{
				Path: "api",
				Children: []*roletree.Node{
					{
						Path: "v1",
						Children: []*roletree.Node{
							{Path: "users", Roles: []roletree.RoleRef{{AuthorityID: "serverkit", RoleID: 1}}},
						},
					},
				},
			},
		},
	})

	store := newMemIdentityStore()
	store.roles[1] = &identity.Role{ID: 1, Name: "member", AuthorityID: "serverkit"}

	logger := zap.NewNop()
	authSvc := authService.NewAuthService(store, manager, hasher.NewBcrypt(4), nil, logger)
	userSvc := userService.NewUserService(store, logger)
	fileSvc, err := fileService.NewFileService(&memFileStore{rows: make(map[string]*file.FileInfo)}, t.TempDir(), logger)
	if err != nil {
		t.Fatalf("file service: %v", err)
	}

	r := gin.New()
	SetupRouter(r, &Handlers{
		AuthHandler: authHandler.NewAuthHandler(authSvc, logger),
		UserHandler: userHandler.NewUserHandler(userSvc, logger),
		FileHandler: fileHandler.NewFileHandler(fileSvc, logger),

		AuthMiddleware:      middleware.NewAuthMiddleware(manager.Verifier),
		RoleCheckMiddleware: middleware.NewRoleCheckMiddleware(tree, false),
	})
	return r, store
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func getWithBearer(r *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) identity.SessionData {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Success {
		t.Fatalf("response not successful: %s", w.Body.String())
	}
	var sess identity.SessionData
	if err := json.Unmarshal(env.Data, &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return sess
}

// Walks the whole surface: register an account, log in, fetch the own
// profile with the access token, then rotate the pair.
func TestRegisterLoginFetchProfileRefresh(t *testing.T) {
	r, store := newTestRouter(t)

	w := postJSON(t, r, "/api/v1/auth/register", gin.H{
		"email":        "alice@example.com",
		"password":     "hunter2secret",
		"display_name": "Alice",
		"platform":     "web",
		"authority_id": "serverkit",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}
	registered := decodeSession(t, w)
	if registered.TokenType != "Bearer" {
		t.Fatalf("token type = %q", registered.TokenType)
	}

	// Registration issues a token without roles; the gated profile route
	// stays closed until a role is granted and a fresh token is obtained.
	if w := getWithBearer(r, "/api/v1/users/me", registered.AccessToken); w.Code != http.StatusForbidden {
		t.Fatalf("pre-role profile status = %d, want 403", w.Code)
	}

	if err := store.AssignRole(context.Background(), registered.User.ID, 1); err != nil {
		t.Fatalf("assign role: %v", err)
	}

	w = postJSON(t, r, "/api/v1/auth/login", gin.H{
		"email":        "alice@example.com",
		"password":     "hunter2secret",
		"platform":     "web",
		"authority_id": "serverkit",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	logged := decodeSession(t, w)

	w = getWithBearer(r, "/api/v1/users/me", logged.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("profile status = %d, body %s", w.Code, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	var profile struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.ID != logged.User.ID || profile.Email != "alice@example.com" {
		t.Fatalf("profile = %+v, want own account", profile)
	}

	w = postJSON(t, r, "/api/v1/auth/refresh", gin.H{"refresh_token": logged.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", w.Code, w.Body.String())
	}
	rotated := decodeSession(t, w)
	if rotated.AccessToken == logged.AccessToken || rotated.RefreshToken == logged.RefreshToken {
		t.Fatal("refresh should issue a brand-new pair")
	}

	if w := getWithBearer(r, "/api/v1/users/me", rotated.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("profile with rotated token status = %d", w.Code)
	}
}

func TestAnonymousProfileForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	if w := getWithBearer(r, "/api/v1/users/me", ""); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRefreshRejectsGarbageOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	w := postJSON(t, r, "/api/v1/auth/refresh", gin.H{"refresh_token": "not.a.token"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.Success {
		t.Fatal("error response should not be marked successful")
	}
}
