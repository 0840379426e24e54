// internal/handlers/user/user_handler.go
package user

import (
	"net/http"
	"strconv"

	"serverkit-service/internal/domain/identity"
	"serverkit-service/internal/middleware"
	xerrors "serverkit-service/internal/pkg/errors"
	"serverkit-service/internal/pkg/response"
	userService "serverkit-service/internal/service/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *userService.UserService
	logger      *zap.Logger
}

func NewUserHandler(svc *userService.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: svc,
		logger:      logger,
	}
}

// GetMe returns the account of the authenticated caller.
func (h *UserHandler) GetMe(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	ident, err := h.userService.GetUser(c.Request.Context(), principal.IdentityID)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to get account", err)
		return
	}

	response.Success(c, http.StatusOK, "ok", userView(ident))
}

// Search filters accounts by the q query parameter with limit/offset paging.
func (h *UserHandler) Search(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	idents, err := h.userService.SearchUsers(c.Request.Context(), c.Query("q"), limit, offset)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to search users", err)
		return
	}

	views := make([]gin.H, 0, len(idents))
	for _, ident := range idents {
		views = append(views, userView(ident))
	}
	response.Success(c, http.StatusOK, "ok", views)
}

// GetByEmail returns an account matched by the email query parameter.
func (h *UserHandler) GetByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.ValidationError(c, "email query parameter is required", nil)
		return
	}

	ident, err := h.userService.GetUserByEmail(c.Request.Context(), email)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to get user", err)
		return
	}

	response.Success(c, http.StatusOK, "ok", userView(ident))
}

// GetUser returns an account by id.
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ident, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to get user", err)
		return
	}

	response.Success(c, http.StatusOK, "ok", userView(ident))
}

// UpdateUser applies a partial profile update.
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req identity.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	updated, err := h.userService.UpdateUser(c.Request.Context(), id, &req)
	if err != nil {
		h.logger.Error("user update failed", zap.Int64("identity_id", id), zap.Error(err))
		response.Error(c, xerrors.HTTPStatus(err), "failed to update user", err)
		return
	}

	response.Success(c, http.StatusOK, "user updated", userView(updated))
}

// UpdateStatus activates or deactivates an account.
func (h *UserHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req identity.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	updated, err := h.userService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to update status", err)
		return
	}

	response.Success(c, http.StatusOK, "status updated", userView(updated))
}

// DeleteUser removes an account.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), id); err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to delete user", err)
		return
	}

	response.Success(c, http.StatusOK, "user deleted", nil)
}

// AssignRole attaches a role to a user.
func (h *UserHandler) AssignRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req identity.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	if err := h.userService.AssignRole(c.Request.Context(), id, req.RoleID); err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to assign role", err)
		return
	}

	h.logger.Info("role assigned", zap.Int64("identity_id", id), zap.Int64("role_id", req.RoleID))
	response.Success(c, http.StatusOK, "role assigned", nil)
}

// RemoveRole detaches a role from a user.
func (h *UserHandler) RemoveRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	roleID, err := strconv.ParseInt(c.Param("roleId"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid role id", err)
		return
	}

	if err := h.userService.RemoveRole(c.Request.Context(), id, roleID); err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to remove role", err)
		return
	}

	response.Success(c, http.StatusOK, "role removed", nil)
}

// ListRoles reports the roles a user holds under an authority.
func (h *UserHandler) ListRoles(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	authorityID := c.Query("authority_id")
	if authorityID == "" {
		if principal, ok := middleware.GetPrincipal(c); ok {
			authorityID = principal.AuthorityID
		}
	}

	roles, err := h.userService.ListRoles(c.Request.Context(), id, authorityID)
	if err != nil {
		response.Error(c, xerrors.HTTPStatus(err), "failed to list roles", err)
		return
	}

	response.Success(c, http.StatusOK, "ok", roles)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ValidationError(c, "invalid user id", err)
		return 0, false
	}
	return id, true
}

// userView strips nullable wrappers for the wire.
func userView(ident *identity.Identity) gin.H {
	return gin.H{
		"id":           ident.ID,
		"email":        ident.Email.String,
		"display_name": ident.DisplayName.String,
		"status":       ident.Status,
		"metadata":     ident.Metadata,
		"created_at":   ident.CreatedAt,
		"updated_at":   ident.UpdatedAt,
	}
}
