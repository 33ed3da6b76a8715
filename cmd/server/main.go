package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/good-yellow-bee/taskboard/internal/api"
	"github.com/good-yellow-bee/taskboard/internal/metrics"
	"github.com/good-yellow-bee/taskboard/internal/storage"
	"github.com/good-yellow-bee/taskboard/pkg/config"
)

// minSecretLength is the shortest accepted HS256 signing secret.
const minSecretLength = 32

var (
	configFile string
	httpAddr   string
	dbPath     string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "taskboard-server",
	Short: "Taskboard Server - project and task tracking API",
	Long: `Taskboard Server exposes the JSON HTTP API for accounts, projects,
project members and tasks, backed by a local SQLite database.`,
	RunE:         runServer,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := config.GetBuildInfo()
		fmt.Printf("taskboard-server %s\n", info.Version)
		fmt.Printf("  commit: %s\n", info.Commit)
		fmt.Printf("  built:  %s\n", info.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path (optional)")
	rootCmd.PersistentFlags().StringVarP(&httpAddr, "address", "a", "", "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to SQLite database file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads .env from the working directory when present.
func loadEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// resolveConfig loads the config file and applies environment and flag
// overrides, flags winning.
func resolveConfig() (*Config, []byte, error) {
	var cfg *Config
	if configFile != "" {
		var err error
		cfg, err = LoadConfig(configFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
	} else {
		cfg = DefaultConfig()
	}

	if envPath := os.Getenv("TASKBOARD_DB_PATH"); envPath != "" {
		cfg.Database.Path = envPath
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if httpAddr != "" {
		cfg.Server.HTTPAddress = httpAddr
	}
	cfg.Verbose = verbose

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	secret := os.Getenv("TASKBOARD_JWT_SECRET")
	if secret == "" {
		return nil, nil, fmt.Errorf("TASKBOARD_JWT_SECRET environment variable is required")
	}
	if len(secret) < minSecretLength {
		return nil, nil, fmt.Errorf("TASKBOARD_JWT_SECRET must be at least %d bytes", minSecretLength)
	}

	return cfg, []byte(secret), nil
}

// apiConfig maps the file config onto the API server config.
func apiConfig(cfg *Config, secret []byte) *api.Config {
	return &api.Config{
		Address:               cfg.Server.HTTPAddress,
		JWTSecret:             secret,
		HTTPTLSEnabled:        cfg.Server.TLS.Enabled,
		HTTPTLSCertFile:       cfg.Server.TLS.CertFile,
		HTTPTLSKeyFile:        cfg.Server.TLS.KeyFile,
		AccessTokenTTL:        duration(cfg.Auth.AccessTokenTTL),
		RefreshTokenTTL:       duration(cfg.Auth.RefreshTokenTTL),
		RateLimitPerIP:        cfg.RateLimit.PerIP,
		RateLimitPerUser:      cfg.RateLimit.PerUser,
		LockoutThreshold:      cfg.Auth.LockoutThreshold,
		LockoutDuration:       duration(cfg.Auth.LockoutDuration),
		RequestTimeout:        duration(cfg.Server.RequestTimeout),
		ShutdownTimeout:       duration(cfg.Server.ShutdownTimeout),
		RequireTaskMembership: *cfg.Tasks.RequireMembership,
		StrictPasswords:       cfg.Auth.StrictPasswords,
		TrustProxyHeaders:     cfg.Server.TrustProxyHeaders,
		Verbose:               cfg.Verbose,
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := loadEnv(); err != nil {
		return err
	}

	cfg, secret, err := resolveConfig()
	if err != nil {
		return err
	}

	// Auto-create data directory
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store := storage.NewSQLiteStorage(cfg.Database.Path)
	if err := store.Open(); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Printf("database initialized at %s", cfg.Database.Path)

	build := config.GetBuildInfo()
	metrics.SetBuildInfo(build.Version, build.Commit, build.BuildTime)

	srv, err := api.New(apiConfig(cfg, secret), store)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("starting taskboard-server %s", config.Version)
	if !*cfg.Tasks.RequireMembership {
		log.Printf("task membership checks disabled: task listing is public")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(ctx)
	})
	if cfg.Metrics.Enabled {
		metricsSrv := metrics.NewServer(cfg.Metrics.Address)
		g.Go(func() error {
			return metricsSrv.Run(ctx, duration(cfg.Server.ShutdownTimeout))
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run server: %w", err)
	}

	log.Printf("server stopped")
	return nil
}
