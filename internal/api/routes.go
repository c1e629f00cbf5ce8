package api

import (
	"github.com/feedloop/securenotes/internal/audit"
	"github.com/feedloop/securenotes/internal/handlers"
	"github.com/feedloop/securenotes/internal/middleware"
	"github.com/feedloop/securenotes/internal/security"
	"github.com/feedloop/securenotes/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// Dependencies carries everything the HTTP layer needs.
type Dependencies struct {
	Logger    *zap.Logger
	AccessLog *logrus.Logger

	Tokens *services.TokenService
	Auth   *services.AuthService
	Users  *services.UserService
	Notes  *services.NoteService

	Trail       audit.Trail
	AuditReader audit.Reader

	Gate        *security.Gate
	BypassPaths []string
	// RateLimiter is optional; nil disables rate limiting.
	RateLimiter      *middleware.RateLimiter
	EnableTestTokens bool

	Status       handlers.StatusInfo
	HealthChecks map[string]handlers.HealthCheck
}

// SetupRoutes configures all API routes with their middleware. Every
// request passes the authentication filter and then the authorization gate
// before reaching a handler.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	accessLog := deps.AccessLog
	if accessLog == nil {
		accessLog = logrus.New()
	}
	gate := deps.Gate
	if gate == nil {
		gate = security.NewGate(security.DefaultRules())
	}

	// Global middleware
	router.Use(middleware.RequestIDMiddleware(logger))
	router.Use(middleware.Logger(accessLog))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.SecurityHeaders())
	if deps.RateLimiter != nil {
		router.Use(deps.RateLimiter.RateLimit())
	}
	router.Use(middleware.Authenticate(deps.Tokens, deps.Auth, deps.BypassPaths, logger))
	router.Use(middleware.Authorize(gate, deps.Trail))

	authHandler := handlers.NewAuthHandler(deps.Auth)
	userHandler := handlers.NewUserHandler(deps.Users)
	adminHandler := handlers.NewAdminHandler(deps.Users, deps.AuditReader)
	noteHandler := handlers.NewNoteHandler(deps.Notes)
	publicHandler := handlers.NewPublicHandler(deps.Status.Version, router.Routes)

	health := handlers.HealthHandler(deps.HealthChecks)
	router.GET("/", publicHandler.Welcome)
	router.GET("/status", handlers.StatusHandler(deps.Status))
	router.GET("/health", health)
	router.GET("/v3/api-docs", publicHandler.APIDocs)

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		if deps.EnableTestTokens {
			auth.POST("/test-token", authHandler.TestToken)
		}
	}

	public := router.Group("/api/public")
	{
		public.GET("/app-info", publicHandler.AppInfo)
		public.GET("/info", publicHandler.Info)
		public.GET("/health", health)
	}

	user := router.Group("/api/user")
	{
		user.GET("/hello", userHandler.Hello)
		user.GET("/me", userHandler.Me)
		user.DELETE("/me", userHandler.DeleteMe)
	}

	admin := router.Group("/api/admin")
	{
		admin.GET("/hello", adminHandler.Hello)
		admin.GET("/users", adminHandler.ListUsers)
		admin.GET("/users/:id", adminHandler.GetUser)
		admin.DELETE("/users/:id", adminHandler.DeleteUser)
		admin.PUT("/users/:id/roles", adminHandler.UpdateRoles)
		admin.GET("/audit", adminHandler.RecentAudit)
	}

	notes := router.Group("/api/notes")
	{
		notes.GET("", noteHandler.ListNotes)
		notes.POST("", noteHandler.CreateNote)
		notes.DELETE("/:id", noteHandler.DeleteNote)
	}
}
