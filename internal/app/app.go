package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"wbbcli/internal/config"
	"wbbcli/internal/infrastructure"
	customMiddleware "wbbcli/internal/middleware"
	"wbbcli/internal/operations"
	"wbbcli/internal/services"
	handlers "wbbcli/internal/transport/http"
	ws "wbbcli/internal/websocket"
)

// Application is the service container of the HTTP host
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	WebSocketHub  *ws.Hub
	RunService    *services.RunService
	HealthService *services.HealthService
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Tracer        *operations.PipelineTracer
}

// NewApplication wires services, router and server from cfg. Nothing is
// started until Run or Serve.
func NewApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.OTelConfigFrom(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	tracer, err := operations.NewPipelineTracer(otelProviders)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize pipeline tracer: %w", err)
	}

	a := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Tracer:        tracer,
	}
	a.initializeServices()
	a.setupRouter()
	a.createServer()

	return a, nil
}

func (a *Application) initializeServices() {
	a.WebSocketHub = ws.NewHub(a.Logger)
	a.WebSocketHub.SetMetrics(a.Tracer.Metrics())

	a.RunService = services.NewRunService(a.Config.Processing, operations.NewMemoryRunStore(),
		a.WebSocketHub, a.Tracer, a.Logger)
	a.HealthService = services.NewHealthService(config.AppVersion, a.WebSocketHub, a.RunService, a.Logger)
}

func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// the upgrade route only gets middleware that leaves the writer hijackable
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	cors := a.corsConfig()
	r.Get("/ws", handlers.NewWebSocketHandler(a.WebSocketHub, cors, a.Logger).ServeHTTP)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Tracer.Metrics(), a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(customMiddleware.Recoverer(a.Logger))
		r.Use(customMiddleware.SecurityHeaders)
		r.Use(customMiddleware.CORS(cors))

		if rl := a.Config.Server.RateLimit; rl.Enabled {
			r.Use(customMiddleware.NewRateLimiter(rl.RPS, rl.Burst, a.Logger).Handler)
		}

		a.setupAPIRoutes(r)
	})

	a.Router = r
}

func (a *Application) setupAPIRoutes(r chi.Router) {
	health := handlers.NewHealthHandler(a.HealthService, a.Logger)
	runs := handlers.NewRunsHandler(a.RunService, customMiddleware.NewRequestValidator(a.Logger), a.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(chimw.Timeout(a.Config.Server.ReadTimeout))

		r.Get("/health", health.HealthCheck)
		r.Get("/health/ready", health.ReadinessCheck)
		r.Get("/version", health.Version)
		r.Mount("/runs", runs.Routes())
	})
}

func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{AllowedOrigins: a.Config.Server.AllowedOrigins}
}

func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Run listens on the configured port and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the hub and the HTTP server on ln. When ctx ends, or the server
// fails, everything is shut down within the configured shutdown timeout.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	a.WebSocketHub.Start()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(ctx, "Server listening",
			slog.String("name", config.AppName),
			slog.String("version", config.AppVersion),
			slog.String("address", ln.Addr().String()))

		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
		defer cancel()
		return a.Stop(shutdownCtx)
	})

	return g.Wait()
}

// Stop shuts the server down, cancels running runs and flushes telemetry
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")
	start := time.Now()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown: %w", err))
	}
	if err := a.RunService.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("run shutdown: %w", err))
	}
	a.WebSocketHub.Stop()

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete",
		slog.Duration("duration", time.Since(start)))
	return errors.Join(errs...)
}
