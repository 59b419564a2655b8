package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gatherd/gatherd/auth"
	"github.com/gatherd/gatherd/config"
	"github.com/gatherd/gatherd/internal/emailutil"
	"github.com/gatherd/gatherd/revocation"
	"github.com/gatherd/gatherd/server"
	"github.com/gatherd/gatherd/store"
	"github.com/gatherd/gatherd/store/postgres"
	"github.com/gatherd/gatherd/store/schema"
	"github.com/gatherd/gatherd/store/sqlite"
)

var rootCmd = &cobra.Command{
	Use:   "gatherd",
	Short: "gatherd - event management API",
	Long: `gatherd is an event management API where organizers publish events,
attendees sign up, and admins have override authority. Access is
controlled by JWT bearer tokens with a server-side revocation registry.`,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the gatherd server",
	Long:  "Start the gatherd API server with the configured record store and revocation registry",
	RunE:  runServer,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  "Validate the gatherd configuration and display the loaded settings",
	RunE:  validateConfig,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin account",
	Long:  "Create an ADMIN user so the admin-only endpoints are reachable on a fresh deployment",
	RunE:  runSeed,
}

var (
	configFilePath string
	seedEmail      string
	seedPassword   string
)

func main() {
	serverCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")
	seedCmd.Flags().StringVarP(&configFilePath, "config", "c", "", "Path to configuration file")
	seedCmd.Flags().StringVar(&seedEmail, "email", "", "Admin account email (required)")
	seedCmd.Flags().StringVar(&seedPassword, "password", "", "Admin account password (required)")

	configCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(serverCmd, configCmd, seedCmd)

	// If no command specified, default to server
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "server")
	}

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// runServer starts the gatherd server
func runServer(cmd *cobra.Command, args []string) error {
	// Context for the server lifecycle; cancelling it stops the sweep worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to sync logger: %v\n", err)
		}
	}()

	logger.Info("Starting gatherd server",
		zap.String("listen_addr", cfg.Server.ListenAddr),
		zap.String("store_type", cfg.Store.Type))

	recordStore, err := openStore(&cfg, logger)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	registry, err := openRegistry(&cfg, recordStore, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	// Start the revocation sweep worker
	revocation.StartSweepWorker(ctx, registry, cfg.Revocation.SweepInterval, logger)

	codec := auth.NewTokenCodec([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
	authService := auth.NewService(codec, registry, recordStore, logger)

	logger.Info("Initializing HTTP router")
	router := server.NewRouter(recordStore, authService, codec, &cfg, logger)

	srv := &http.Server{
		Addr:         cfg.Server.ListenAddr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.Server.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server exited gracefully")
	return nil
}

// openStore initializes the configured record store, running migrations
// first for the postgres backend.
func openStore(cfg *config.AppConfig, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Type {
	case "postgres":
		logger.Info("Running database migrations")
		if err := schema.RunMigrations(cfg.Store.DSN); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}

		logger.Info("Initializing postgres record store")
		st, err := postgres.NewPostgresStore(cfg.Store.DSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize record store: %w", err)
		}
		return st, nil

	case "sqlite":
		logger.Info("Initializing sqlite record store", zap.String("path", cfg.Store.SQLitePath))
		st, err := sqlite.NewSQLiteStore(cfg.Store.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize record store: %w", err)
		}
		return st, nil
	}

	return nil, fmt.Errorf("unknown store type %q", cfg.Store.Type)
}

// openRegistry initializes the configured revocation registry backend
func openRegistry(cfg *config.AppConfig, st store.Store, logger *zap.Logger) (revocation.Registry, error) {
	switch cfg.Revocation.Backend {
	case "redis":
		logger.Info("Initializing redis revocation registry", zap.String("addr", cfg.Revocation.RedisAddr))
		return revocation.NewRedisRegistry(
			cfg.Revocation.RedisAddr,
			cfg.Revocation.RedisPassword,
			cfg.Revocation.RedisDB,
			cfg.Revocation.RedisKeyPrefix,
			cfg.Revocation.Window,
			logger)

	case "store":
		logger.Info("Initializing store-backed revocation registry")
		return revocation.NewStoreRegistry(st, cfg.Revocation.Window, logger)
	}

	return nil, fmt.Errorf("unknown revocation backend %q", cfg.Revocation.Backend)
}

// runSeed creates the initial ADMIN account
func runSeed(cmd *cobra.Command, args []string) error {
	if seedEmail == "" || seedPassword == "" {
		return fmt.Errorf("--email and --password are required")
	}

	cfg, err := config.LoadConfigFromFile(configFilePath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := initializeLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	recordStore, err := openStore(&cfg, logger)
	if err != nil {
		return err
	}
	defer recordStore.Close()

	email := emailutil.Normalize(seedEmail)
	if !emailutil.Valid(email) {
		return fmt.Errorf("invalid email address %q", seedEmail)
	}

	hash, err := auth.HashPassword(seedPassword, cfg.Auth.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	admin := &store.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Role:         store.RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := recordStore.CreateUser(context.Background(), admin); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("an account with email %s already exists", email)
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	fmt.Printf("Created admin account %s (%s)\n", admin.Email, admin.ID)
	return nil
}

// validateConfig validates the gatherd configuration and displays settings
func validateConfig(cmd *cobra.Command, args []string) error {
	fmt.Println("Validating configuration...")

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Configuration validation failed: %v\n", err)
		return err
	}

	fmt.Println("Configuration is valid")
	fmt.Printf("Listen Address: %s\n", cfg.Server.ListenAddr)
	fmt.Printf("Store Type: %s\n", cfg.Store.Type)
	if cfg.Store.Type == "postgres" {
		fmt.Printf("Store DSN: %s\n", maskDSN(cfg.Store.DSN))
	} else {
		fmt.Printf("SQLite Path: %s\n", cfg.Store.SQLitePath)
	}
	fmt.Printf("Revocation Backend: %s\n", cfg.Revocation.Backend)
	fmt.Printf("Token TTL: %s\n", cfg.Auth.TokenTTL)
	fmt.Printf("Revocation Window: %s\n", cfg.Revocation.Window)

	return nil
}

// maskDSN masks sensitive parts of the database DSN for display
func maskDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	if len(dsn) > 20 {
		return dsn[:10] + "***" + dsn[len(dsn)-7:]
	}
	return "***"
}

// initializeLogger creates a zap logger based on configuration
func initializeLogger(logCfg config.LogConfig) (*zap.Logger, error) {
	var cfg zap.Config

	if logCfg.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}

	switch logCfg.Level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return cfg.Build()
}
