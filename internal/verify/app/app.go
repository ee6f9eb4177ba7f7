package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nzassa/verify/internal/verify/dispatch"
	"github.com/nzassa/verify/internal/verify/domain"
	httpapi "github.com/nzassa/verify/internal/verify/http"
	"github.com/nzassa/verify/internal/verify/service"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/internal/verify/store/drivers/sqlite"
	"github.com/nzassa/verify/pkg/jwtx"
	"github.com/nzassa/verify/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the verification service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	db       store.Store
	verifier jwtx.Verifier

	sessionService      *service.SessionService
	dispatchService     *service.DispatchService
	verifyService       *service.VerifyService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "verify-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initVerifier(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("verify service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"demo_mode", app.cfg.DemoMode,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down verify service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("verify service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initVerifier builds the bearer token verifier from config. The marketplace
// auth service signs the tokens; this service only verifies them.
func (app *Application) initVerifier() error {
	var audience []string
	if app.cfg.Audience != "" {
		audience = []string{app.cfg.Audience}
	}

	switch app.cfg.JWTAlgorithm {
	case "HS256":
		if app.cfg.JWTSecret == "" {
			return fmt.Errorf("VERIFY_JWT_SECRET is required for HS256")
		}
		app.verifier = jwtx.NewHS256Verifier([]byte(app.cfg.JWTSecret), app.cfg.Issuer, audience)
	case "EdDSA":
		if app.cfg.JWTPublicKeyFile == "" {
			return fmt.Errorf("VERIFY_JWT_PUBLIC_KEY_FILE is required for EdDSA")
		}
		verifier, err := jwtx.NewEdDSAVerifierFromPEM(app.cfg.JWTPublicKeyFile, app.cfg.Issuer, audience)
		if err != nil {
			return fmt.Errorf("failed to load verification key: %w", err)
		}
		app.verifier = verifier
	default:
		return fmt.Errorf("unsupported JWT algorithm %q", app.cfg.JWTAlgorithm)
	}

	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.sessionService = &service.SessionService{
		Store:      app.db,
		Issuer:     app.cfg.Issuer,
		SessionTTL: app.cfg.SessionTTL,
	}

	app.dispatchService = &service.DispatchService{
		Store:           app.db,
		Dispatcher:      app.buildDispatcher(),
		Logger:          app.logger,
		Cooldown:        app.cfg.ResendCooldown,
		CodeTTL:         app.cfg.CodeTTL,
		SendTimeout:     app.cfg.SendTimeout,
		MessageTemplate: app.cfg.SMSMessageBody,
	}

	app.verifyService = &service.VerifyService{
		Store:         app.db,
		Logger:        app.logger,
		Verifiers:     app.buildVerifiers(),
		VerifyTimeout: app.cfg.VerifyTimeout,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// buildDispatcher selects the outbound channel implementation. Demo mode and
// missing gateway credentials both fall back to the logging stub so no SMS
// ever leaves a non-production deployment by accident.
func (app *Application) buildDispatcher() dispatch.Dispatcher {
	if app.cfg.DemoMode || app.cfg.SMSGatewayURL == "" {
		app.logger.Info("using logging dispatcher, no SMS will be sent")
		return dispatch.NewLoggerDispatcher(app.logger)
	}

	return dispatch.NewGateway(dispatch.GatewayConfig{
		BaseURL: app.cfg.SMSGatewayURL,
		APIKey:  app.cfg.SMSAPIKey,
		Sender:  app.cfg.SMSSender,
		Timeout: app.cfg.SendTimeout,
	})
}

// buildVerifiers maps each channel to its verifier capability. Demo mode
// accepts the fixed literal on every channel, with a simulated round trip.
func (app *Application) buildVerifiers() map[domain.Channel]service.Verifier {
	if app.cfg.DemoMode {
		demo := &service.DemoVerifier{
			MinLatency: 700 * time.Millisecond,
			MaxLatency: 1000 * time.Millisecond,
		}
		return map[domain.Channel]service.Verifier{
			domain.ChannelAuthenticator: demo,
			domain.ChannelSMS:           demo,
		}
	}

	return map[domain.Channel]service.Verifier{
		domain.ChannelAuthenticator: service.TOTPVerifier{},
		domain.ChannelSMS:           &service.StoredCodeVerifier{Store: app.db},
	}
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SessionService = app.sessionService
	router.DispatchService = app.dispatchService
	router.VerifyService = app.verifyService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
