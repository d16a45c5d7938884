package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"docflow/backend/internal/api"
	"docflow/backend/internal/audit"
	"docflow/backend/internal/auth"
	"docflow/backend/internal/config"
	"docflow/backend/internal/engine"
	"docflow/backend/internal/hooks"
	"docflow/backend/internal/logging"
	"docflow/backend/internal/mcp"
	"docflow/backend/internal/repository"
	"docflow/backend/internal/services"
	"docflow/backend/internal/tls"
)

func runServe(ctx context.Context, configPath string) error {
	cfg, logger, err := loadRuntime(configPath)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		"okta_client_id", cfg.Auth.ClientID,
		"okta_domain", cfg.Auth.OktaDomain,
		"secret_len", len(cfg.Auth.ClientSecret),
		"swagger_client_id", cfg.Auth.SwaggerClientID,
		"config_file", viper.ConfigFileUsed(),
	)
	if cfg.Auth.SwaggerClientID != "" && cfg.Auth.SwaggerClientID == cfg.Auth.ClientID {
		logger.Warn("Swagger client ID matches the backend client ID. PKCE login from the Swagger UI fails when the backend is a web app that requires a secret.")
	}

	logger.Info("Starting Docflow workflow service", "version", version)

	// Metrics: otel instruments exported through a Prometheus registry.
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create metrics exporter: %w", err)
	}
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(meterProvider)
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	repo, release, err := openRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return err
	}
	defer release()

	sink, closeAudit := newAuditSink(cfg, repo, logger)

	eng := engine.New(repo, sink, logger,
		engine.WithBackfillConcurrency(cfg.Engine.BackfillConcurrency),
		engine.WithBackfillPageSize(cfg.Engine.BackfillPageSize),
		engine.WithMeterProvider(meterProvider),
	)
	hookRegistry := hooks.NewRegistry(eng, logger)
	documents := hooks.NewStore(repo, hookRegistry)
	svc := services.NewWorkflowService(repo, documents, hookRegistry, eng, sink, logger)

	restored, err := svc.RestoreHooks(ctx)
	if err != nil {
		logger.Error("Failed to restore workflow hooks", "error", err)
		return err
	}
	logger.Info("Service layer initialized", "hooks_restored", restored)

	authz, err := auth.New(ctx, cfg, repo, logger)
	if err != nil {
		logger.Error("Failed to initialize auth", "error", err)
		return err
	}
	if authz.Bypass() {
		logger.Warn("Authentication bypass enabled, every request runs as the dev actor",
			"actor_id", cfg.DevActor.ID, "role", cfg.DevActor.Role)
	} else if cfg.DevModeBypass {
		logger.Warn("dev_mode_bypass is ignored outside the development environment", "environment", cfg.Environment)
	}

	e := newEcho(cfg, logger, svc, authz, registry)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     zap.NewStdLog(logger.Zap()),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		serverErrors <- listen(server, cfg, logger)
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			closeAudit(context.Background())
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
		if err := server.Close(); err != nil {
			logger.Error("Server close error", "error", err)
		}
	}
	svc.WaitBackfills()
	closeAudit(shutdownCtx)

	logger.Info("Server stopped gracefully")
	return nil
}

// newAuditSink persists audit entries in the store and, when a webhook is
// configured, forwards them through a buffered emitter. The returned function
// drains the emitter.
func newAuditSink(cfg *config.Config, repo repository.AuditStore, logger *logging.Logger) (audit.Sink, func(context.Context)) {
	storeSink := audit.NewStoreSink(repo)
	if cfg.Audit.WebhookURL == "" {
		return storeSink, func(context.Context) {}
	}

	emitter := audit.NewEmitter(audit.NewWebhookSink(cfg.Audit.WebhookURL, cfg.Audit.Timeout), cfg.Audit.BufferSize, logger)
	logger.Info("Audit webhook enabled", "url", cfg.Audit.WebhookURL, "buffer_size", cfg.Audit.BufferSize)
	return audit.Multi{storeSink, emitter}, func(ctx context.Context) {
		if err := emitter.Close(ctx); err != nil {
			logger.Warn("Audit webhook did not drain", "error", err, "dropped", emitter.Dropped())
		}
	}
}

func newEcho(cfg *config.Config, logger *logging.Logger, svc *services.WorkflowService, authz *auth.Auth, registry *prometheus.Registry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(otelecho.Middleware("docflow"))

	apiServer := api.NewServer(svc, logger, version)
	e.GET("/health", apiServer.HandleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	e.GET("/login", echo.WrapHandler(http.HandlerFunc(authz.LoginHandler)))
	e.GET("/auth/callback", echo.WrapHandler(http.HandlerFunc(authz.CallbackHandler)))
	e.GET("/logout", echo.WrapHandler(http.HandlerFunc(authz.LogoutHandler)))

	requireAuth := echo.WrapMiddleware(authz.RequireAuth)

	apiGroup := e.Group("/api/v1")
	apiGroup.Use(requireAuth)
	api.RegisterHandlers(apiGroup, apiServer)
	logger.Info("REST API handlers mounted")

	mcpServer := mcp.NewServer(svc, version)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers), requireAuth)
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers), requireAuth)
	logger.Info("MCP protocol handlers mounted")

	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler(cfg.Auth.OktaDomain)))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler(cfg.Auth.OktaDomain, cfg.Auth.SwaggerClientID)))
	e.GET("/docs/oauth2-redirect.html", echo.WrapHandler(http.HandlerFunc(api.OAuthRedirectHandler)))

	return e
}

func listen(server *http.Server, cfg *config.Config, logger *logging.Logger) error {
	if !cfg.TLS.Enable {
		return server.ListenAndServe()
	}
	generated, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("Generated a self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
	}
	return server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
}
