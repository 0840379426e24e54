// internal/app/router.go
package app

import (
	authHandler "serverkit-service/internal/handlers/auth"
	fileHandler "serverkit-service/internal/handlers/file"
	userHandler "serverkit-service/internal/handlers/user"
	"serverkit-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AuthHandler *authHandler.AuthHandler
	UserHandler *userHandler.UserHandler
	FileHandler *fileHandler.FileHandler

	AuthMiddleware      *middleware.AuthMiddleware
	RoleCheckMiddleware *middleware.RoleCheckMiddleware
}

func SetupRouter(r *gin.Engine, h *Handlers) {
	api := r.Group("/api/v1")

	// Verification runs before the request scope is established, which in
	// turn runs before authorization. The order is load-bearing: the role
	// check trusts the principal in the request scope, never raw headers.
	api.Use(
		h.AuthMiddleware.Auth(),
		middleware.RequestContext(),
		h.RoleCheckMiddleware.Check(),
	)

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ==================== Auth ====================
	auth := api.Group("/auth")
	{
		auth.POST("/register", h.AuthHandler.Register)
		auth.POST("/login", h.AuthHandler.Login)
		auth.POST("/refresh", h.AuthHandler.Refresh)
		auth.GET("/verify", h.AuthHandler.Verify)
	}

	// ==================== Users ====================
	users := api.Group("/users")
	{
		users.GET("", h.UserHandler.GetByEmail)
		users.GET("/search", h.UserHandler.Search)
		users.GET("/me", h.UserHandler.GetMe)
		users.GET("/:id", h.UserHandler.GetUser)
		users.PATCH("/:id", h.UserHandler.UpdateUser)
		users.PUT("/:id/status", h.UserHandler.UpdateStatus)
		users.DELETE("/:id", h.UserHandler.DeleteUser)
		users.GET("/:id/roles", h.UserHandler.ListRoles)
		users.POST("/:id/roles", h.UserHandler.AssignRole)
		users.DELETE("/:id/roles/:roleId", h.UserHandler.RemoveRole)
	}

	// ==================== Files ====================
	files := api.Group("/files")
	{
		files.POST("/upload", h.FileHandler.Upload)
		files.GET("", h.FileHandler.List)
		files.GET("/:id", h.FileHandler.Get)
		files.GET("/:id/download", h.FileHandler.Download)
		files.DELETE("/:id", h.FileHandler.Delete)
	}
}
