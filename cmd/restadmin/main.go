// ABOUTME: Entry point for the restadmin CLI.
// ABOUTME: Runs the fake REST backend and a command-line client for its data and auth providers.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/2389/restadmin/internal/config"
	"github.com/2389/restadmin/internal/logging"
	"github.com/2389/restadmin/internal/seed"
	"github.com/2389/restadmin/internal/server"
	"github.com/2389/restadmin/internal/store"
)

// defaultSeedPosts is how many posts seed and reset create.
const defaultSeedPosts = 6

type app struct {
	cfg    *config.Config
	logger *zap.Logger
	posts  int
}

func main() {
	cfg := config.Load()
	if err := newRootCmd(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	a := &app{cfg: cfg}

	rootCmd := &cobra.Command{
		Use:   "restadmin",
		Short: "Token-authenticated REST admin client and fake backend",
		Long: `restadmin talks to REST backends that follow Django REST Framework conventions:
token authentication, paginated list endpoints, and per-record member URLs.

It also ships a fake backend so the client can be exercised locally.

Quick Start:
  restadmin reset                        # Create a fresh database with sample data
  restadmin serve                        # Start the fake backend on port 9000
  restadmin login admin --password admin # Store a session
  restadmin list posts --sort title      # Query a resource`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewLogger(a.cfg.LogLevel)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				a.logger.Sync()
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&a.cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the fake backend",
		Long: `Start the fake REST backend on the specified port.

The server provides:
  • Token endpoint at POST /api-token-auth/
  • User info at GET /users/{id}/
  • Generic resources at /{resource}/ and /{resource}/{id}/
  • Request inspection at /_admin/ (superusers)
  • Health check at /healthz

Authentication:
  Use the token returned by the token endpoint: Authorization: Token <key>

Environment Variables:
  RESTADMIN_PORT       Server port (default: 9000)
  RESTADMIN_DB_PATH    Database path`,
		RunE: a.runServe,
	}
	serveCmd.Flags().StringVarP(&a.cfg.Port, "port", "p", cfg.Port, "Port to listen on")
	serveCmd.Flags().StringVarP(&a.cfg.DBPath, "db", "d", cfg.DBPath, "Database path")

	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with sample users, posts, and comments",
		Long: `Seed the database with sample accounts and records.

AI-Powered Generation:
  Set OPENAI_API_KEY to have posts and comments written by OpenAI.
  Falls back to static sample data if no API key is provided or the call fails.

Accounts:
  admin / admin    superuser
  alice / secret   editor for posts and comments
  bob   / secret   read-only

Note: Seed is not idempotent. Use 'restadmin reset' to clear data before reseeding.`,
		RunE: a.runSeed,
	}
	seedCmd.Flags().StringVarP(&a.cfg.DBPath, "db", "d", cfg.DBPath, "Database path")
	seedCmd.Flags().IntVarP(&a.posts, "posts", "n", defaultSeedPosts, "Number of posts to create")

	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the database (wipe and reseed)",
		Long: `Delete the database file and create a fresh one with new sample data.

Warning: This permanently deletes all data in the database!`,
		RunE: a.runReset,
	}
	resetCmd.Flags().StringVarP(&a.cfg.DBPath, "db", "d", cfg.DBPath, "Database path")
	resetCmd.Flags().IntVarP(&a.posts, "posts", "n", defaultSeedPosts, "Number of posts to create")

	rootCmd.AddCommand(serveCmd, seedCmd, resetCmd)
	rootCmd.AddCommand(a.clientCommands()...)
	return rootCmd
}

// validateAndCleanDBPath validates and cleans a database path.
// Handles Unix/Linux, macOS, and Windows paths (including UNC and drive letters).
func validateAndCleanDBPath(path string) (string, error) {
	cleanPath := strings.TrimSpace(path)
	cleanPath = filepath.Clean(cleanPath)

	// Reject empty and root-like paths
	if cleanPath == "" || cleanPath == "." || cleanPath == "/" {
		return "", fmt.Errorf("database path cannot be empty, '.', or '/'")
	}

	// Windows: reject bare drive letters (e.g., "C:", "D:")
	if runtime.GOOS == "windows" && len(cleanPath) == 2 && cleanPath[1] == ':' {
		return "", fmt.Errorf("database path cannot be a bare drive letter")
	}

	if strings.Contains(cleanPath, "..") {
		return "", fmt.Errorf("database path cannot contain '..'")
	}

	badPatterns := []string{
		".git",
		".svn",
		"node_modules",
		".env",
		"credentials",
		"secret",
	}
	lowerPath := strings.ToLower(cleanPath)
	for _, pattern := range badPatterns {
		if strings.Contains(lowerPath, pattern) {
			return "", fmt.Errorf("database path cannot contain '%s' directory", pattern)
		}
	}

	return cleanPath, nil
}

func (a *app) openStore() (*store.Store, error) {
	dbPath, err := validateAndCleanDBPath(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.cfg.DBPath = dbPath
	s, err := store.New(dbPath, store.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return s, nil
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	addr := ":" + a.cfg.Port
	a.logger.Info("restadmin backend listening", zap.String("addr", addr), zap.String("db", a.cfg.DBPath))
	return http.ListenAndServe(addr, server.New(s, a.logger))
}

func (a *app) runSeed(cmd *cobra.Command, args []string) error {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	return a.seedData(cmd.Context(), s)
}

func (a *app) runReset(cmd *cobra.Command, args []string) error {
	dbPath, err := validateAndCleanDBPath(a.cfg.DBPath)
	if err != nil {
		return err
	}

	// Remove existing database - ignore if file doesn't exist
	if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove existing database: %w", err)
	}

	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	return a.seedData(cmd.Context(), s)
}

func (a *app) seedData(ctx context.Context, s *store.Store) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a.logger.Info("seeding database with sample data", zap.String("db", a.cfg.DBPath))

	g := seed.NewGenerator(a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel, a.logger)
	summary, err := seed.Run(ctx, s, g, a.posts)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			a.logger.Warn("database already contains seed data; use 'restadmin reset' to clear and reseed")
		}
		return err
	}

	a.logger.Info("seeding complete",
		zap.Int("users", summary.Users),
		zap.Int("posts", summary.Posts),
		zap.Int("comments", summary.Comments),
		zap.Int("total", summary.Total()),
		zap.Bool("ai", g.UsesAI()),
	)
	return nil
}
