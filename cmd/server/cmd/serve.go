package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/Togather-Foundation/eventdesk/internal/api"
	"github.com/Togather-Foundation/eventdesk/internal/audit"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/Togather-Foundation/eventdesk/internal/domain/events"
	"github.com/Togather-Foundation/eventdesk/internal/domain/users"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
	"github.com/Togather-Foundation/eventdesk/internal/storage/postgres"
	"github.com/Togather-Foundation/eventdesk/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var (
	// Server flags (override config/env)
	serverHost    string
	serverPort    int
	migrateOnBoot bool
)

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server and begin accepting requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Promote ADMIN_BOOTSTRAP_AUTH_ID to super_admin if set
- Serve the /api/events and /api/users endpoints
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  eventdesk serve

  # Start on a specific host and port
  eventdesk serve --host 127.0.0.1 --port 9090

  # Apply pending migrations first
  eventdesk serve --migrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx)
		},
	}

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
	serveCmd.Flags().BoolVar(&migrateOnBoot, "migrate", false, "apply pending database migrations before serving")
	return serveCmd
}

func runServer(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	applyServerFlags(&cfg)

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Str("environment", cfg.Environment).Msg("starting eventdesk server")

	metrics.Init(Version, GitCommit, BuildDate)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing, Version)
	if err != nil {
		return fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Error().Err(err).Msg("tracing shutdown error")
		}
	}()

	if migrateOnBoot {
		if err := postgres.MigrateUp(cfg.Database.URL, cfg.Database.MigrationsPath); err != nil {
			return err
		}
		logger.Info().Msg("database migrations applied")
	}

	poolCtx, poolCancel := context.WithTimeout(ctx, 10*time.Second)
	pool, err := postgres.NewPool(poolCtx, cfg.Database)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	if err := metrics.RegisterPool(pool); err != nil {
		logger.Warn().Err(err).Msg("database pool metrics not registered")
	}

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return err
	}

	provider, err := auth.NewProviderFromConfig(ctx, cfg.Auth)
	if err != nil {
		return fmt.Errorf("auth provider setup failed: %w", err)
	}

	auditLogger, closeAudit, err := newAuditLogger(cfg.Audit, logger)
	if err != nil {
		return err
	}
	defer closeAudit()

	userService := users.NewService(repo.Users(), logger,
		users.WithPasswordAuthenticator(provider),
		users.WithAuditLogger(auditLogger),
		users.WithAtomicVerification(cfg.Users.VerifyAtomic),
		users.WithMaxPageSize(cfg.Users.MaxPageSize),
	)
	eventService := events.NewService(repo.Events(), logger)

	bootCtx, bootCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := bootstrapAdmin(bootCtx, repo.Users(), cfg.AdminBootstrap.AuthID, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootCancel()

	handler := api.NewRouter(api.Deps{
		Config:   cfg,
		Logger:   logger,
		Verifier: provider,
		Resolver: userService,
		Events:   eventService,
		Users:    userService,
		DB:       repo,
		Build: api.BuildInfo{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second, // Total time to read request
		WriteTimeout:      30 * time.Second, // Total time to write response
		ReadHeaderTimeout: 5 * time.Second,  // Time to read headers
		MaxHeaderBytes:    1 << 20,          // 1 MB max header size
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return gracefulShutdown(server, logger)
	})
	return g.Wait()
}

func applyServerFlags(cfg *config.Config) {
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
}

// newAuditLogger returns the audit logger and a close func for its bus
// connection. Without a NATS URL decisions are only logged.
func newAuditLogger(cfg config.AuditConfig, logger zerolog.Logger) (*audit.Logger, func(), error) {
	if cfg.NATSURL == "" {
		return audit.NewLogger(logger), func() {}, nil
	}
	conn, err := audit.ConnectNATS(cfg.NATSURL, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Str("subject", cfg.NATSSubject).Msg("publishing audit entries")
	return audit.NewLogger(logger, audit.WithPublisher(conn, cfg.NATSSubject)), func() {
		if err := conn.Drain(); err != nil {
			logger.Warn().Err(err).Msg("audit bus drain error")
		}
	}, nil
}

type profilePromoter interface {
	PromoteByAuthID(ctx context.Context, authID, role string) (bool, error)
}

// bootstrapAdmin promotes the profile linked to authID to super_admin.
// A profile that does not exist yet is logged and skipped.
func bootstrapAdmin(ctx context.Context, store profilePromoter, authID string, logger zerolog.Logger) error {
	if authID == "" {
		return nil
	}
	found, err := store.PromoteByAuthID(ctx, authID, string(auth.RoleSuperAdmin))
	if err != nil {
		return fmt.Errorf("promote bootstrap admin: %w", err)
	}
	if !found {
		logger.Warn().Str("auth_id", authID).Msg("admin bootstrap profile not found; register it and restart")
		return nil
	}
	logger.Info().Str("auth_id", authID).Msg("bootstrapped super admin")
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
