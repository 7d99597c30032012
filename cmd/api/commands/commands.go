package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/flowhq/flow/internal/adapters/mongorepo"
	"github.com/flowhq/flow/internal/application/services"
	"github.com/flowhq/flow/internal/infrastructure/config"
	"github.com/flowhq/flow/internal/infrastructure/database"
	"github.com/flowhq/flow/internal/infrastructure/logger"
	"github.com/flowhq/flow/internal/infrastructure/mailer"
	"github.com/flowhq/flow/internal/infrastructure/server"
	"github.com/flowhq/flow/internal/ports"
)

// Set at build time with -ldflags "-X".
var (
	Version   = "dev"
	GitCommit = "development"
	BuildDate = "unknown"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Flow API server",
		Long:  "Start the Flow API server with all configured routes and middleware",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage the schema: SQL migrations for postgres, indexes for mongo",
	}

	for _, direction := range []string{"up", "down"} {
		direction := direction
		migrateCmd.AddCommand(&cobra.Command{
			Use:   direction,
			Short: fmt.Sprintf("Run all %s migrations", direction),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigration(cmd.Context(), direction)
			},
		})
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMigrationVersion(cmd.Context())
		},
	})

	return migrateCmd
}

// NewUserCommand creates the user management command
func NewUserCommand() *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
	}

	createUserCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			return createUser(cmd.Context(), ports.SignupRequest{Name: name, Email: email, Password: password})
		},
	}

	createUserCmd.Flags().String("name", "", "Display name (required)")
	createUserCmd.Flags().String("email", "", "User email (required)")
	createUserCmd.Flags().String("password", "", "User password (required)")
	_ = createUserCmd.MarkFlagRequired("name")
	_ = createUserCmd.MarkFlagRequired("email")
	_ = createUserCmd.MarkFlagRequired("password")

	userCmd.AddCommand(createUserCmd)
	return userCmd
}

// NewInvitationsCommand creates the invitation maintenance command
func NewInvitationsCommand() *cobra.Command {
	invitationsCmd := &cobra.Command{
		Use:   "invitations",
		Short: "Invitation maintenance commands",
	}

	invitationsCmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete invitations past their expiry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return purgeInvitations(cmd.Context())
		},
	})
	return invitationsCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Flow version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Flow %s\n", Version)
			fmt.Printf("Build Date: %s\n", BuildDate)
			fmt.Printf("Git Commit: %s\n", GitCommit)
		},
	}
}

// bootstrap loads configuration, the logger and the store every command needs.
func bootstrap(ctx context.Context) (*config.Config, *logger.Logger, *server.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	store, err := server.OpenStore(ctx, cfg.Database, appLogger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	return cfg, appLogger, store, nil
}

func runServer(ctx context.Context) error {
	cfg, appLogger, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()
	defer store.Close()

	redisClient, err := database.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Rate limits fall back to per-process counters.
		appLogger.Warnw("Redis unavailable, continuing without it", "error", err)
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	srv, err := server.New(cfg, store, redisClient, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		appLogger.Infow("Starting Flow API server",
			"port", cfg.Server.Port,
			"environment", cfg.App.Environment,
		)
		if err := srv.Start(fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	appLogger.Infow("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	appLogger.Infow("Server exited gracefully")
	return nil
}

func runMigration(ctx context.Context, direction string) error {
	_, appLogger, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	switch store.Driver {
	case config.DriverPostgres:
		changed, err := store.Postgres.Migrate(direction)
		if err != nil {
			return err
		}
		if !changed {
			fmt.Println("No migrations to run")
			return nil
		}
	case config.DriverMongo:
		if direction == "down" {
			return fmt.Errorf("mongo indexes have no down migration")
		}
		// OpenStore already ensured them; run again so the command is explicit.
		if err := mongorepo.EnsureIndexes(ctx, store.Mongo.Database); err != nil {
			return err
		}
	default:
		appLogger.Infow("Nothing to migrate", "driver", store.Driver)
		return nil
	}

	fmt.Printf("Migration %s completed successfully\n", direction)
	return nil
}

func showMigrationVersion(ctx context.Context) error {
	_, _, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	if store.Postgres == nil {
		return fmt.Errorf("migration versions are tracked for postgres only, driver is %q", store.Driver)
	}

	m, err := store.Postgres.Migrator()
	if err != nil {
		return err
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("No migrations applied")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	fmt.Printf("Current migration version: %d\n", version)
	fmt.Printf("Dirty: %t\n", dirty)
	return nil
}

func createUser(ctx context.Context, req ports.SignupRequest) error {
	_, appLogger, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := services.NewAuthService(store.Repos.Users, appLogger).Signup(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("User created successfully:\n")
	fmt.Printf("  ID: %s\n", user.ID)
	fmt.Printf("  Email: %s\n", user.Email)
	fmt.Printf("  Name: %s\n", user.Name)
	return nil
}

func purgeInvitations(ctx context.Context) error {
	cfg, appLogger, store, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	repos := store.Repos
	activity := services.NewActivityService(repos.Activity, repos.Projects, repos.Tasks, repos.Users, appLogger)
	invitations := services.NewInvitationService(
		repos.Invitations, repos.Projects, repos.Users, activity, mailer.New(cfg.SMTP, appLogger),
		cfg.App.PublicURL, cfg.Invitations.TTL, appLogger,
	)

	n, err := invitations.PurgeExpired(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Purged %d expired invitations\n", n)
	return nil
}
