// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"serverkit-service/internal/config"
	"serverkit-service/internal/db"
	authHandler "serverkit-service/internal/handlers/auth"
	fileHandler "serverkit-service/internal/handlers/file"
	userHandler "serverkit-service/internal/handlers/user"
	"serverkit-service/internal/middleware"
	"serverkit-service/internal/pkg/hasher"
	"serverkit-service/internal/pkg/roletree"
	"serverkit-service/internal/pkg/session"
	"serverkit-service/internal/pkg/token"
	"serverkit-service/internal/repository/postgres"
	authService "serverkit-service/internal/service/auth"
	fileService "serverkit-service/internal/service/file"
	userService "serverkit-service/internal/service/user"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	pool       *pgxpool.Pool
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := postgres.Connect(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.pool = pool

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		DB:       0,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// ----- Token Manager -----
	tokenManager, err := token.LoadAndBuild(s.cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to load token manager: %w", err)
	}

	// ----- Role Tree -----
	tree, err := roletree.Load(s.cfg.RoleTreePath)
	if err != nil {
		return fmt.Errorf("failed to load role tree: %w", err)
	}

	// ----- Repositories -----
	identityRepo := postgres.NewIdentityRepository(pool)
	fileRepo := postgres.NewFileRepository(pool)

	// ----- Services -----
	rateLimiter := session.NewRateLimiter(redisClient)
	authSvc := authService.NewAuthService(
		identityRepo,
		tokenManager,
		hasher.NewBcrypt(0),
		rateLimiter,
		logger,
	)
	userSvc := userService.NewUserService(identityRepo, logger)
	fileSvc, err := fileService.NewFileService(fileRepo, s.cfg.UploadDir, logger)
	if err != nil {
		return fmt.Errorf("failed to init file service: %w", err)
	}

	// ----- Handlers -----
	handlers := &Handlers{
		AuthHandler: authHandler.NewAuthHandler(authSvc, logger),
		UserHandler: userHandler.NewUserHandler(userSvc, logger),
		FileHandler: fileHandler.NewFileHandler(fileSvc, logger),

		AuthMiddleware:      middleware.NewAuthMiddleware(tokenManager.Verifier),
		RoleCheckMiddleware: middleware.NewRoleCheckMiddleware(tree, s.cfg.RoleTreeFailClosed),
	}

	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)
	SetupRouter(s.engine, handlers)

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	logger.Info("server starting", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting new requests, drains in-flight ones and releases
// the connection pools.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return err
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.logger != nil {
		s.logger.Sync()
	}
	return nil
}
