// internal/pkg/requestctx/context.go

// Package requestctx carries the verified caller identity and the request
// correlation id through a request's call graph. Values live on the request's
// context.Context, so each request gets an isolated scope that disappears
// when the request ends; there is no process-global state to clean up.
package requestctx

import "context"

// Principal is the verified caller identity attached to a request.
type Principal struct {
	IdentityID  int64
	AuthorityID string
	RoleIDs     []int64
	RoleNames   []string
}

// HasRoleID reports whether the principal holds the given role id.
func (p Principal) HasRoleID(id int64) bool {
	for _, r := range p.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

type principalKey struct{}
type requestIDKey struct{}

// WithPrincipal attaches the verified principal to the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, &p)
}

// PrincipalFromContext extracts the verified principal. It returns false
// outside of a request scope or when the request was anonymous.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	v, ok := ctx.Value(principalKey{}).(*Principal)
	if !ok || v == nil {
		return Principal{}, false
	}
	return *v, true
}

// WithRequestID attaches the request correlation id to the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request correlation id if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(requestIDKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
