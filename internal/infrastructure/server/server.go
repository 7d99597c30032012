package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/flowhq/flow/docs"
	httpHandlers "github.com/flowhq/flow/internal/adapters/http"
	"github.com/flowhq/flow/internal/application/services"
	"github.com/flowhq/flow/internal/domain/entities"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/infrastructure/mailer"
	"github.com/flowhq/flow/internal/infrastructure/ratelimit"
	"github.com/flowhq/flow/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	store    *Store
	redis    *redis.Client
	registry *prometheus.Registry
	sweeper  *invitationSweeper
	stop     context.CancelFunc
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

type handlers struct {
	auth        *httpHandlers.AuthHandler
	users       *httpHandlers.UserHandler
	projects    *httpHandlers.ProjectHandler
	tasks       *httpHandlers.TaskHandler
	invitations *httpHandlers.InvitationHandler
	analytics   *httpHandlers.AnalyticsHandler
}

// New creates a new server instance. redisClient may be nil.
func New(cfg *config.Config, store *Store, redisClient *redis.Client, appLogger *logger.Logger) (*Server, error) {
	e := echo.New()

	e.Validator = &CustomValidator{validator: validator.New()}
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	templates, err := entities.LoadTemplateCatalog(cfg.Templates.File)
	if err != nil {
		return nil, fmt.Errorf("failed to load project templates: %w", err)
	}

	repos := store.Repos
	mail := mailer.New(cfg.SMTP, appLogger)

	// Initialize services
	sessions := services.NewSessionManager(cfg.Session)
	activityService := services.NewActivityService(repos.Activity, repos.Projects, repos.Tasks, repos.Users, appLogger)
	authService := services.NewAuthService(repos.Users, appLogger)
	userService := services.NewUserService(repos.Users, repos.Projects, repos.Invitations, appLogger)
	projectService := services.NewProjectService(repos.Projects, repos.Users, activityService, templates, appLogger)
	taskService := services.NewTaskService(repos.Tasks, repos.Projects, repos.Users, activityService, appLogger)
	invitationService := services.NewInvitationService(
		repos.Invitations, repos.Projects, repos.Users, activityService, mail,
		cfg.App.PublicURL, cfg.Invitations.TTL, appLogger,
	)
	analyticsService := services.NewAnalyticsService(repos.Tasks, repos.Projects, repos.Activity, repos.Users, appLogger)

	h := handlers{
		auth:        httpHandlers.NewAuthHandler(authService, sessions, cfg.Session, appLogger),
		users:       httpHandlers.NewUserHandler(userService, cfg.Session, appLogger),
		projects:    httpHandlers.NewProjectHandler(projectService, activityService, appLogger),
		tasks:       httpHandlers.NewTaskHandler(taskService, activityService, appLogger),
		invitations: httpHandlers.NewInvitationHandler(invitationService, appLogger),
		analytics:   httpHandlers.NewAnalyticsHandler(analyticsService, appLogger),
	}

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		store:    store,
		redis:    redisClient,
		registry: prometheus.NewRegistry(),
		sweeper:  newInvitationSweeper(invitationService, cfg.Invitations.SweepInterval, appLogger),
	}

	limiter := ratelimit.New(redisClient, cfg.Security.LocalLimiterCap, appLogger, server.registry)

	server.setupMiddleware()
	if cfg.Metrics.Enabled {
		server.setupMetrics()
	}
	server.setupRoutes(h, sessions, limiter)

	return server, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.echo.Use(middleware.Recover())

	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			reqLogger := s.logger.WithRequestID(values.RequestID)
			if values.Error != nil {
				reqLogger = reqLogger.WithError(values.Error)
			}
			reqLogger.LogHTTPRequest(
				values.Method,
				values.URI,
				values.RemoteIP,
				values.UserAgent,
				values.Status,
				float64(values.Latency.Nanoseconds())/1000000,
			)
			return nil
		},
	}))

	// Credentials need an explicit origin list; "*" is only honoured without them.
	origins := strings.Split(s.config.Security.CORSAllowedOrigins, ",")
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:     []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowCredentials: len(origins) > 0 && origins[0] != "*",
	}))

	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))

	s.echo.Use(middleware.RequestID())

	s.echo.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Timeout:      s.config.Server.RequestTimeout,
		ErrorMessage: `{"error":"Request timed out"}`,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(h handlers, sessions ports.SessionService, limiter *ratelimit.Limiter) {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	strict := limiter.Middleware(ratelimit.StrictPolicy(s.config.Security), clientIdentifier)
	moderate := limiter.Middleware(ratelimit.ModeratePolicy(s.config.Security), clientIdentifier)

	v1 := s.echo.Group("/api/v1", s.loadSession(sessions), moderate)

	// Auth routes (public)
	authGroup := v1.Group("/auth")
	authGroup.POST("/signup", h.auth.Signup, strict)
	authGroup.POST("/login", h.auth.Login, strict)
	authGroup.POST("/logout", h.auth.Logout)

	api := v1.Group("", s.requireAuth)

	userGroup := api.Group("/users/me")
	userGroup.GET("", h.users.GetCurrentUser)
	userGroup.PATCH("", h.users.UpdateCurrentUser)
	userGroup.DELETE("", h.users.DeleteAccount)
	userGroup.PUT("/password", h.users.ChangePassword)
	userGroup.POST("/onboarding", h.users.CompleteOnboarding)

	api.GET("/templates", h.projects.ListTemplates)

	projectGroup := api.Group("/projects")
	projectGroup.GET("", h.projects.ListProjects)
	projectGroup.POST("", h.projects.CreateProject)
	projectGroup.GET("/:id", h.projects.GetProject)
	projectGroup.PUT("/:id", h.projects.UpdateProject)
	projectGroup.DELETE("/:id", h.projects.DeleteProject)
	projectGroup.PUT("/:id/columns", h.projects.UpdateColumns)
	projectGroup.PUT("/:id/labels", h.projects.UpdateLabels)
	projectGroup.GET("/:id/members", h.projects.ListMembers)
	projectGroup.DELETE("/:id/members/:userId", h.projects.RemoveMember)
	projectGroup.POST("/:id/onboarding/dismiss", h.projects.DismissOnboarding)
	projectGroup.GET("/:id/activity", h.projects.GetActivity)
	projectGroup.GET("/:id/stats", h.analytics.ProjectStats)
	projectGroup.GET("/:id/tasks", h.tasks.ListTasks)
	projectGroup.POST("/:id/tasks", h.tasks.CreateTask)
	projectGroup.GET("/:id/invitations", h.invitations.ListProjectInvitations)
	projectGroup.POST("/:id/invitations", h.invitations.Invite, strict)

	taskGroup := api.Group("/tasks")
	taskGroup.GET("/:id", h.tasks.GetTask)
	taskGroup.PATCH("/:id", h.tasks.UpdateTask)
	taskGroup.DELETE("/:id", h.tasks.DeleteTask)
	taskGroup.PUT("/:id/move", h.tasks.MoveTask)
	taskGroup.POST("/:id/comments", h.tasks.AddComment)
	taskGroup.POST("/:id/subtasks", h.tasks.AddSubtask)
	taskGroup.PATCH("/:id/subtasks/:subtaskId", h.tasks.ToggleSubtask)
	taskGroup.DELETE("/:id/subtasks/:subtaskId", h.tasks.DeleteSubtask)
	taskGroup.GET("/:id/activity", h.tasks.GetActivity)

	invitationGroup := api.Group("/invitations")
	invitationGroup.GET("", h.invitations.ListMine)
	invitationGroup.POST("/accept", h.invitations.Accept)
	invitationGroup.POST("/:id/decline", h.invitations.Decline)
	invitationGroup.DELETE("/:id", h.invitations.Revoke)

	analyticsGroup := api.Group("/analytics")
	analyticsGroup.GET("/stats", h.analytics.TaskStats)
	analyticsGroup.GET("/overdue", h.analytics.OverdueTasks)
	analyticsGroup.GET("/trend", h.analytics.CompletionTrend)
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	s.registry.MustRegister(
		requestsTotal,
		requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}

			requestsTotal.WithLabelValues(c.Request().Method, c.Path(), fmt.Sprintf("%d", status)).Inc()
			requestDuration.WithLabelValues(c.Request().Method, c.Path()).Observe(time.Since(start).Seconds())

			return err
		}
	})

	metricsHandler := promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
	s.echo.GET(s.config.Metrics.Path, echo.WrapHandler(metricsHandler))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	ctx := c.Request().Context()
	status := "ok"
	checks := make(map[string]interface{})

	if err := s.store.HealthCheck(ctx); err != nil {
		status = "error"
		checks["database"] = map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		}
	} else {
		checks["database"] = map[string]interface{}{
			"status": "ok",
			"stats":  s.store.Info(),
		}
	}

	// Redis is optional; rate limiting degrades to per-process without it.
	switch {
	case s.redis == nil:
		checks["redis"] = map[string]interface{}{"status": "disabled"}
	default:
		if err := s.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = map[string]interface{}{"status": "degraded", "error": err.Error()}
		} else {
			checks["redis"] = map[string]interface{}{"status": "ok"}
		}
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
			"go":  runtime.Version(),
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.store.HealthCheck(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "database_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the background sweeper and the HTTP server. It blocks until
// the server stops.
func (s *Server) Start(address string) error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	go s.sweeper.run(ctx)

	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	s.logger.Infow("Starting server", "address", address, "driver", s.store.Driver)
	return s.echo.Start(address)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")
	if s.stop != nil {
		s.stop()
	}
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"error": message}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := "Something went wrong"

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead {
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, ports.ErrorResponse{Error: msg})
			}
			if err != nil {
				logger.Errorw("Error sending response", "error", err)
			}
		}
	}
}
