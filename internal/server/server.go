// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	audit          *observability.AuditLogger

	userRepo     repository.UserRepository
	tokenRepo    repository.TokenRepository
	articleRepo  repository.ArticleRepository
	commentRepo  repository.CommentRepository
	categoryRepo repository.CategoryRepository

	policy          *service.OwnershipPolicy
	tokenService    *service.TokenService
	userService     *service.UserService
	articleService  *service.ArticleService
	commentService  *service.CommentService
	categoryService *service.CategoryService
	reactionService *service.ReactionService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Tests use this with an in-memory database and miniredis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("inkwell-api"),
		// The context-aware logger stamps audit lines with the same
		// request_id/user_id attributes as every other log line.
		audit:        observability.NewAuditLogger(middleware.Logger),
		userRepo:     repository.NewUserRepository(db),
		tokenRepo:    repository.NewTokenRepository(db),
		articleRepo:  repository.NewArticleRepository(db),
		commentRepo:  repository.NewCommentRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
	}

	server.policy = service.NewOwnershipPolicy(server.audit)
	server.tokenService = service.NewTokenService(server.tokenRepo, server.audit)
	server.userService = service.NewUserService(server.userRepo, server.tokenService)
	server.articleService = service.NewArticleService(server.articleRepo, server.categoryRepo, server.policy)
	server.commentService = service.NewCommentService(server.commentRepo, server.articleRepo, server.policy)
	server.categoryService = service.NewCategoryService(server.categoryRepo)
	server.reactionService = service.NewReactionService(db, server.articleRepo, server.commentRepo, server.policy)

	return server, nil
}

// TokenService exposes the token service for bootstrap code that runs
// the background sweep.
func (s *Server) TokenService() *service.TokenService {
	return s.tokenService
}

// Shutdown releases the server's database and Redis connections.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			return err
		}
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Request spans; sets the traceID local the context middleware reads
	app.Use(middleware.TracingMiddleware())

	// Context middleware to propagate request, user and trace IDs
	app.Use(middleware.ContextMiddleware())

	// Prometheus metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before middlewares that can short-circuit (e.g. limiter)
	// so browser clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Inkwell Metrics Dashboard",
	}))

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/logout-all", s.AuthRequired(), s.RevokeAllTokens)
	auth.Get("/tokens", s.AuthRequired(), s.ListTokens)
	auth.Get("/me", s.AuthRequired(), s.Me)

	// Public article routes; optional auth lets authors see their own drafts
	publicArticles := api.Group("/articles", s.OptionalAuth())
	publicArticles.Get("/", s.GetArticles)
	publicArticles.Get("/:id/comments", s.GetComments)
	publicArticles.Get("/:id", s.GetArticle)

	// Public category routes
	categories := api.Group("/categories")
	categories.Get("/", s.GetCategories)
	categories.Get("/:slug", s.GetCategoryBySlug)

	// Protected routes
	protected := api.Group("", s.AuthRequired())

	// User routes
	users := protected.Group("/users")
	users.Get("/me", s.Me)
	users.Put("/me", s.UpdateMe)
	users.Get("/me/articles", s.GetMyArticles)
	users.Get("/", s.AdminRequired(), s.GetAllUsers)
	// Specific /:id/:resource routes BEFORE generic /:id route
	users.Post("/:id/promote-admin", s.AdminRequired(), s.PromoteToAdmin)
	users.Post("/:id/demote-admin", s.AdminRequired(), s.DemoteFromAdmin)
	users.Post("/:id/deactivate", s.AdminRequired(), s.DeactivateUser)
	users.Get("/:id", s.GetUserProfile)

	// Protected article routes
	articles := protected.Group("/articles")
	articles.Post("/", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "create_article"), s.CreateArticle)
	// Specific /:id/:resource routes BEFORE generic /:id route
	articles.Post("/:id/like", s.ToggleArticleReaction)
	articles.Post("/:id/comments", middleware.RateLimit(
		s.redis, 15, time.Minute, "create_comment"), s.CreateComment)
	articles.Put("/:id", s.UpdateArticle)
	articles.Delete("/:id", s.DeleteArticle)

	// Protected comment routes
	comments := protected.Group("/comments")
	comments.Post("/:id/like", s.ToggleCommentReaction)
	comments.Post("/:id/status", s.AdminRequired(), s.SetCommentStatus)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	// Category mutations are admin only
	adminCategories := protected.Group("/categories", s.AdminRequired())
	adminCategories.Post("/", s.CreateCategory)
	adminCategories.Put("/:id", s.UpdateCategory)
	adminCategories.Delete("/:id", s.DeleteCategory)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "ready"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overall = "not ready"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// credentialFromRequest pulls the session secret from the request. The
// Authorization header is canonical; the token query parameter is kept
// for older clients and slated for removal.
func credentialFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func (s *Server) authenticate(c *fiber.Ctx, secret string) error {
	user, token, err := s.tokenService.Resolve(c.UserContext(), secret)
	if err != nil {
		return err
	}

	c.Locals("user", user)
	c.Locals("userID", user.ID)
	c.Locals("token", token)
	// Sync to UserContext for logging and downstream services
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, user.ID)
	c.SetUserContext(ctx)
	return nil
}

// AuthRequired returns the authentication middleware. Every request on
// a protected route must carry a usable session token.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := credentialFromRequest(c)
		if secret == "" {
			observability.AuthOutcomes.WithLabelValues("missing").Inc()
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewInvalidCredentialError())
		}
		if err := s.authenticate(c, secret); err != nil {
			return models.Respond(c, err)
		}
		return c.Next()
	}
}

// OptionalAuth authenticates when a credential is present and lets
// anonymous requests through. A presented-but-unusable credential still
// fails with 401 rather than downgrading to anonymous.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		secret := credentialFromRequest(c)
		if secret == "" {
			return c.Next()
		}
		if err := s.authenticate(c, secret); err != nil {
			return models.Respond(c, err)
		}
		return c.Next()
	}
}

// AdminRequired restricts a route to admin and staff accounts. It must
// run after AuthRequired.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := s.currentUser(c)
		if user == nil || !user.Elevated() {
			observability.PermissionDenials.WithLabelValues("admin").Inc()
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewPermissionDeniedError("Admin access required"))
		}
		return c.Next()
	}
}
