// Package server
//
// @title Ivalora Console API
// @version 1.0
// @description Local console API for the Ivalora Gadget POS terminal
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ivalora-gadget/console/internal/account"
	"github.com/ivalora-gadget/console/internal/authflow"
	"github.com/ivalora-gadget/console/internal/forms"
	"github.com/ivalora-gadget/console/internal/models"
	"github.com/ivalora-gadget/console/internal/session"
)

// AuthScreens runs the auth flows
type AuthScreens interface {
	Login(ctx context.Context, form forms.LoginForm, from string) (*authflow.LoginResult, error)
	RegisterAdmin(ctx context.Context, form forms.AdminRegistrationForm) (*authflow.RegistrationResult, error)
	RegisterCustomer(ctx context.Context, form forms.CustomerRegistrationForm) (*authflow.RegistrationResult, error)
	ResetPassword(ctx context.Context, form forms.ResetPasswordForm) error
	ForgotPassword(ctx context.Context, form forms.ForgotPasswordForm) error
	Logout(ctx context.Context) error
}

// SessionState is the synchronized session the console serves
type SessionState interface {
	View() session.View
	WaitReady(ctx context.Context) error
	Refresh(ctx context.Context) error
	Terminate(ctx context.Context) error
}

// LinkHandler adopts sessions from verification and recovery links
type LinkHandler interface {
	SessionFromURL(link string) (*account.Session, error)
	InRecovery() bool
}

// ActivityLog lists recorded auth activity
type ActivityLog interface {
	Recent(ctx context.Context, limit int) ([]models.ActivityEntry, error)
	Get(ctx context.Context, id string) (*models.ActivityEntry, error)
}

// Options wires the server's collaborators
type Options struct {
	Auth        AuthScreens
	Session     SessionState
	Links       LinkHandler
	Activity    ActivityLog
	CORSOrigins []string
	Version     string
}

// Server represents the HTTP server
type Server struct {
	router   *gin.Engine
	logger   zerolog.Logger
	auth     AuthScreens
	session  SessionState
	links    LinkHandler
	activity ActivityLog
	origins  []string
	version  string

	shutdownHooks []func()
}

// New creates a new server instance
func New(opts Options, zlog zerolog.Logger) *Server {
	server := &Server{
		logger:   zlog.With().Str("component", "server").Logger(),
		auth:     opts.Auth,
		session:  opts.Session,
		links:    opts.Links,
		activity: opts.Activity,
		origins:  opts.CORSOrigins,
		version:  opts.Version,
	}

	server.setupRouter()

	return server
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	if len(s.origins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:     s.origins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length", requestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		authRoutes.POST("/login", s.login)
		authRoutes.POST("/register", s.registerAdmin)
		authRoutes.POST("/register-customer", s.registerCustomer)
		authRoutes.POST("/forgot-password", s.forgotPassword)
		authRoutes.POST("/reset-password", s.resetPassword)
		authRoutes.POST("/recovery", s.adoptLink)
		authRoutes.POST("/logout", s.logout)

		api.GET("/session", s.getSession)
		api.POST("/session/refresh", s.refreshSession)

		api.GET("/activity", s.listActivity)
		api.GET("/activity/:id", s.getActivity)

		// Screens behind the account-status gate
		approved := api.Group("")
		approved.Use(RequireApproved(s.session, s.logger))
		{
			approved.GET("/me", s.getCurrentUser)
		}
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("request_id", c.GetString(requestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	view := s.session.View()
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "ivalora-console",
		"version":   s.version,
		"ready":     !view.Loading,
	})
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// OnShutdown registers fn to run after the HTTP server has stopped
func (s *Server) OnShutdown(fn func()) {
	s.shutdownHooks = append(s.shutdownHooks, fn)
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully
func (s *Server) Start(addr string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
			errChan <- err
		}
	}()

	var serveErr error
	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case serveErr = <-errChan:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		if serveErr == nil {
			serveErr = err
		}
	}

	for i := len(s.shutdownHooks) - 1; i >= 0; i-- {
		s.shutdownHooks[i]()
	}

	s.logger.Info().Msg("Server shutdown complete")
	return serveErr
}
