package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"serverkit-service/internal/pkg/requestctx"
	"serverkit-service/internal/pkg/roletree"
	"serverkit-service/internal/pkg/token"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenEnv struct {
	gen *token.Generator
	ver *token.Verifier
}

func newTokenEnv(t *testing.T) *tokenEnv {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &tokenEnv{
		gen: token.NewGenerator(key, "serverkit-auth", "serverkit-client", time.Hour, 7*24*time.Hour),
		ver: token.NewVerifier(&key.PublicKey, "serverkit-auth", "serverkit-client"),
	}
}

func (e *tokenEnv) accessToken(t *testing.T, payload token.Payload) string {
	t.Helper()
	tok, err := e.gen.AccessToken(payload)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func testTree() *roletree.Tree {
	return roletree.New(&roletree.Node{
		Path: "/",
		Children: []*roletree.Node{
			{
				Path:  "files",
				Roles: []roletree.RoleRef{{AuthorityID: "authA", RoleID: 2}},
				Children: []*roletree.Node{
					{Path: "upload", Method: "POST", Roles: []roletree.RoleRef{{AuthorityID: "authA", RoleID: 3}}},
				},
			},
			{Path: "public"},
		},
	})
}

// newRouter wires the chain the way the server does: auth, then request
// scope, then role check.
func newRouter(env *tokenEnv, tree *roletree.Tree, failClosed bool) *gin.Engine {
	r := gin.New()
	r.Use(NewAuthMiddleware(env.ver).Auth())
	r.Use(RequestContext())
	r.Use(NewRoleCheckMiddleware(tree, failClosed).Check())
	handler := func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"identity_id": principal.IdentityID})
	}
	r.GET("/public", handler)
	r.GET("/files", handler)
	r.POST("/files/upload", handler)
	r.GET("/unlisted", handler)
	return r
}

func do(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAnonymousPassesPublicRoute(t *testing.T) {
	r := newRouter(newTokenEnv(t), testTree(), false)
	if w := do(r, http.MethodGet, "/public", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAnonymousDeniedOnProtectedRoute(t *testing.T) {
	r := newRouter(newTokenEnv(t), testTree(), false)
	if w := do(r, http.MethodGet, "/files", ""); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	r := newRouter(newTokenEnv(t), testTree(), false)
	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	req.Header.Set("Authorization", "Token abc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	gen := token.NewGenerator(key, "serverkit-auth", "serverkit-client", time.Hour, 7*24*time.Hour)
	env := &tokenEnv{
		gen: gen,
		ver: token.NewVerifier(&key.PublicKey, "serverkit-auth", "serverkit-client"),
	}
	expired, err := gen.Sign(token.Payload{IdentityID: 1, AuthorityID: "authA"}, -time.Minute)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	r := newRouter(env, testTree(), false)
	if w := do(r, http.MethodGet, "/public", expired); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRoleMatchAllows(t *testing.T) {
	env := newTokenEnv(t)
	r := newRouter(env, testTree(), false)
	tok := env.accessToken(t, token.Payload{IdentityID: 7, AuthorityID: "authA", RoleIDs: []int64{2}})
	if w := do(r, http.MethodGet, "/files", tok); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
}

func TestMissingRoleDenied(t *testing.T) {
	env := newTokenEnv(t)
	r := newRouter(env, testTree(), false)
	tok := env.accessToken(t, token.Payload{IdentityID: 7, AuthorityID: "authA", RoleIDs: []int64{99}})
	if w := do(r, http.MethodGet, "/files", tok); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestWrongAuthorityDenied(t *testing.T) {
	env := newTokenEnv(t)
	r := newRouter(env, testTree(), false)
	tok := env.accessToken(t, token.Payload{IdentityID: 7, AuthorityID: "authB", RoleIDs: []int64{2}})
	if w := do(r, http.MethodGet, "/files", tok); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

// A nested node adds its own requirement on top of the group's.
func TestNestedRouteNeedsAnyListedRole(t *testing.T) {
	env := newTokenEnv(t)
	r := newRouter(env, testTree(), false)

	tok := env.accessToken(t, token.Payload{IdentityID: 7, AuthorityID: "authA", RoleIDs: []int64{3}})
	if w := do(r, http.MethodPost, "/files/upload", tok); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestUnlistedPathFailOpen(t *testing.T) {
	r := newRouter(newTokenEnv(t), testTree(), false)
	if w := do(r, http.MethodGet, "/unlisted", ""); w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestUnlistedPathFailClosed(t *testing.T) {
	r := newRouter(newTokenEnv(t), testTree(), true)
	if w := do(r, http.MethodGet, "/unlisted", ""); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	r := gin.New()
	r.Use(RequestContext())
	var seen string
	r.GET("/ping", func(c *gin.Context) {
		seen, _ = requestctx.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if seen == "" {
		t.Fatal("request id should be generated")
	}
	if got := w.Header().Get("X-Request-Id"); got != seen {
		t.Fatalf("response header %q, context value %q", got, seen)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-Id", "client-supplied")
	r.ServeHTTP(w, req)
	if seen != "client-supplied" {
		t.Fatalf("client-supplied id not propagated, got %q", seen)
	}
}

func TestPrincipalScopedToRequest(t *testing.T) {
	env := newTokenEnv(t)
	r := newRouter(env, testTree(), false)

	tok := env.accessToken(t, token.Payload{IdentityID: 7, AuthorityID: "authA", RoleIDs: []int64{2}})
	if w := do(r, http.MethodGet, "/files", tok); w.Code != http.StatusOK {
		t.Fatalf("authenticated request: status = %d", w.Code)
	}

	// The next request has no principal left over from the previous one.
	w := do(r, http.MethodGet, "/public", "")
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous request: status = %d", w.Code)
	}
	if body := w.Body.String(); body != `{"anonymous":true}` {
		t.Fatalf("body = %s, want anonymous marker", body)
	}
}
