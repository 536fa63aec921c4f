package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"bsanalyzer/internal/auth"
	"bsanalyzer/internal/company"
	"bsanalyzer/internal/config"
	apierrors "bsanalyzer/internal/errors"
	"bsanalyzer/internal/extraction"
	"bsanalyzer/internal/infrastructure"
	"bsanalyzer/internal/llm"
	customMiddleware "bsanalyzer/internal/middleware"
	"bsanalyzer/internal/scheduler"
	"bsanalyzer/internal/services"
	"bsanalyzer/internal/storage"
	handlers "bsanalyzer/internal/transport/http"
	ws "bsanalyzer/internal/websocket"
	"bsanalyzer/pkg/contracts"
)

// AppName is logged at startup.
const AppName = "Balance Sheet Analyzer"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	DB            *storage.DB
	WebSocketHub  *ws.Hub
	Scheduler     *scheduler.Scheduler
	Services      *ServiceContainer
	Router        *chi.Mux
	Server        *http.Server

	errorHandler *apierrors.ErrorHandler
	tokens       *auth.TokenManager
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Auth    *services.AuthService
	Admin   *services.AdminService
	Company *services.CompanyService
	Chat    *services.ChatService
	Health  *services.HealthService
}

// NewApplication loads the configuration and the global logger, then builds
// the application.
func NewApplication(ctx context.Context) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(ctx, cfg, logger)
}

// New wires every component for cfg. The caller owns the returned
// application and must call Run or Stop.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Application, error) {
	logger.InfoContext(ctx, "Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	paths := cfg.GetPaths()
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}

	otelConfig := infrastructure.DefaultOTelConfig()
	otelConfig.ServiceVersion = contracts.Version
	otelProviders, err := infrastructure.InitializeOTel(otelConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	meter := otelProviders.Meter
	if meter == nil {
		meter = otel.Meter(infrastructure.MeterName)
	}
	metrics, err := infrastructure.CreateBusinessMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		errorHandler:  apierrors.NewErrorHandler(logger, false, services.ErrorMappings()...),
	}

	if err := app.initializeServices(ctx, meter); err != nil {
		app.release(ctx)
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices opens storage and builds the services in dependency
// order.
func (a *Application) initializeServices(ctx context.Context, meter metric.Meter) error {
	db, err := storage.Open(ctx, a.Config.Database, a.Logger)
	if err != nil {
		return err
	}
	a.DB = db
	users := storage.NewUserStore(db)

	wsMetrics, err := ws.NewMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to create websocket metrics: %w", err)
	}
	hub := ws.NewHub(wsMetrics, a.Logger)
	hub.Start()
	a.WebSocketHub = hub

	a.tokens = auth.NewTokenManager(a.Config.Auth.JWTSecret, a.Config.Auth.TokenTTL, infrastructure.ServiceName)
	workspace := company.NewWorkspace(a.Paths, a.Config.LLM.PromptBudget, a.Logger)

	companyService := services.NewCompanyService(users, workspace, extraction.DefaultRecipes(),
		a.Config.Extraction.Threshold, hub, a.Metrics, a.Logger)
	authService := services.NewAuthService(users, workspace, a.tokens, a.Config.Auth.BcryptCost, hub, a.Metrics, a.Logger)
	if err := authService.EnsureAdmin(ctx, a.Config.Auth.AdminUsername, a.Config.Auth.AdminPassword); err != nil {
		return err
	}

	a.Services = &ServiceContainer{
		Auth:    authService,
		Admin:   services.NewAdminService(users, workspace, companyService, hub, a.Metrics, a.Logger),
		Company: companyService,
		Chat:    services.NewChatService(users, workspace, llm.New(a.Config.LLM, a.Logger), a.Metrics, a.Logger),
		Health:  services.NewHealthService(db, hub, a.Paths.CompanyDataDir, a.Logger),
	}

	if a.Config.Scheduler.Enabled {
		sched, err := scheduler.New(a.Config.Scheduler, companyService, a.Logger)
		if err != nil {
			return err
		}
		a.Scheduler = sched
	}

	return nil
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()
	authn := customMiddleware.NewAuthenticator(a.tokens, a.errorHandler, a.Logger)

	// Order: RequestID → RealIP → OTel → Logger → Recoverer → headers → CORS → rate limit
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(customMiddleware.StructuredLogger(a.Logger))
	r.Use(customMiddleware.Recoverer(a.errorHandler))
	r.Use(customMiddleware.SecurityHeaders)
	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.errorHandler,
			a.Logger,
		).Handler)
	}

	a.setupAPIRoutes(r, authn)

	upgrader := ws.NewUpgrader(ws.UpgraderOptions{
		ReadBufferSize:  a.Config.WebSocket.ReadBufferSize,
		WriteBufferSize: a.Config.WebSocket.WriteBufferSize,
		AllowedOrigins:  a.Config.Security.AllowedOrigins,
	})
	events := handlers.NewEventsHandler(a.WebSocketHub, upgrader,
		a.Config.WebSocket.PongWait, a.Config.WebSocket.PingPeriod, a.Logger, a.errorHandler)
	r.With(
		authn.RequireTokenOrQuery,
		authn.RequireAdmin,
		customMiddleware.WebSocketTraceMiddleware(a.Logger),
	).Handle("/ws/events", events)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router, authn *customMiddleware.Authenticator) {
	validation := customMiddleware.NewValidationMiddleware(a.Logger, a.errorHandler)

	authHandler := handlers.NewAuthHandler(a.Services.Auth, validation, a.Logger, a.errorHandler)
	adminHandler := handlers.NewAdminHandler(a.Services.Admin, a.Logger, a.errorHandler)
	userHandler := handlers.NewUserHandler(a.Services.Company, a.Logger, a.errorHandler)
	chatHandler := handlers.NewChatHandler(a.Services.Chat, validation, a.Logger, a.errorHandler)
	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(validation.ValidateRequest)

		r.Mount("/health", healthHandler.Routes())
		r.Get("/version", healthHandler.Version)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", authHandler.AdminLogin)
			r.Group(func(r chi.Router) {
				r.Use(authn.RequireToken, authn.RequireAdmin)
				r.Get("/pending-approvals", adminHandler.PendingApprovals)
				r.Post("/approve-company/{company_id}", adminHandler.ApproveCompany)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.RequireToken, authn.RequireRole(auth.RoleUser))
			r.Mount("/user", userHandler.Routes())
			r.Mount("/chat", chatHandler.Routes())
		})
	})
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
		Logger:           a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then
// shuts everything down.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.String("company_data_dir", a.Paths.CompanyDataDir),
		slog.String("database_driver", a.DB.Driver()))

	if a.Scheduler != nil {
		a.Scheduler.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening", slog.String("address", a.Server.Addr))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("Received shutdown signal")
		return a.Stop(context.Background())
	})

	return g.Wait()
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.Server != nil {
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
		}
	}

	a.release(shutdownCtx)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// release stops background work and closes resources that exist so far.
func (a *Application) release(ctx context.Context) {
	if a.Scheduler != nil {
		if err := a.Scheduler.Stop(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Scheduler did not stop in time", slog.String("error", err.Error()))
		}
	}
	if a.WebSocketHub != nil {
		a.WebSocketHub.Stop()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.ErrorContext(ctx, "Error closing database", slog.String("error", err.Error()))
		}
	}
	if a.OTelProviders != nil {
		flushCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.OTelProviders.Shutdown(flushCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
}
