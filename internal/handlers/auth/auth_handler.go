// internal/handlers/auth/auth_handler.go
package auth

import (
	"net/http"

	"serverkit-service/internal/domain/identity"
	xerrors "serverkit-service/internal/pkg/errors"
	"serverkit-service/internal/pkg/response"
	"serverkit-service/internal/pkg/token"
	authService "serverkit-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authService.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(svc *authService.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: svc,
		logger:      logger,
	}
}

// Register handles account registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req identity.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	req.IPAddress = c.ClientIP()

	sess, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.logger.Error("registration failed",
			zap.String("email", req.Email),
			zap.Error(err),
		)
		response.Error(c, xerrors.HTTPStatus(err), "registration failed", err)
		return
	}

	response.Success(c, http.StatusCreated, "registration successful", sess)
}

// Login handles password login
func (h *AuthHandler) Login(c *gin.Context) {
	var req identity.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	req.IPAddress = c.ClientIP()

	sess, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		h.logger.Warn("login failed",
			zap.String("email", req.Email),
			zap.String("ip", req.IPAddress),
			zap.Error(err),
		)
		response.Error(c, xerrors.HTTPStatus(err), "login failed", err)
		return
	}

	h.logger.Info("user logged in",
		zap.Int64("identity_id", sess.User.ID),
	)
	response.Success(c, http.StatusOK, "login successful", sess)
}

// Refresh rotates a refresh token into a new token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req identity.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	sess, err := h.authService.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, tokenStatus(err), "refresh failed", err)
		return
	}

	response.Success(c, http.StatusOK, "token refreshed", sess)
}

// Verify reports the claims of a presented token without side effects
func (h *AuthHandler) Verify(c *gin.Context) {
	raw, ok := token.ExtractBearer(c.GetHeader("Authorization"))
	if !ok {
		response.Unauthorized(c, "missing bearer token")
		return
	}

	claims, err := h.authService.Verify(raw)
	if err != nil {
		response.Error(c, tokenStatus(err), "verification failed", err)
		return
	}

	response.Success(c, http.StatusOK, "token valid", gin.H{
		"identity_id":  claims.IdentityID,
		"authority_id": claims.AuthorityID,
		"role_ids":     claims.RoleIDs,
		"role_names":   claims.RoleNames,
		"expires_at":   claims.ExpiresAt.Time,
	})
}

// tokenStatus maps verification failures to 401 and everything else through
// the shared error mapping.
func tokenStatus(err error) int {
	switch {
	case xerrors.Is(err, token.ErrTokenExpired),
		xerrors.Is(err, token.ErrTokenInvalid),
		xerrors.Is(err, token.ErrTokenVerificationFailed):
		return http.StatusUnauthorized
	default:
		return xerrors.HTTPStatus(err)
	}
}
