package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jonathanprocter/practice-intelligently-sub006/internal/config"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/identity"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/linking"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/notes"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/domain/scheduling"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/ai"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/db"
	"github.com/jonathanprocter/practice-intelligently-sub006/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "practice-server",
		Short: "Practice intelligence API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <practice-id>",
		Short: "Run a batch reconciliation for a practice and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			practiceID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid practice id: %w", err)
			}
			autoCreate, _ := cmd.Flags().GetBool("auto-create")

			logger := newLogger()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := buildServices(cfg, pool, logger)
			report, err := svcs.linking.Reconcile(ctx, practiceID, linking.ReconcileOptions{AutoCreate: autoCreate})
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().Bool("auto-create", false, "Create appointments for documents with no matching appointment")
	return cmd
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// services bundles the domain layer wired against one pool.
type services struct {
	clients *identity.Service
	appts   *scheduling.Service
	notes   *notes.Service
	linking *linking.Service
}

// buildServices wires the domain services and the linking engine. Shared by
// the server and the reconcile command.
func buildServices(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *services {
	clientSvc := identity.NewService(identity.NewRepo(pool))
	apptSvc := scheduling.NewService(scheduling.NewRepo(pool))
	noteSvc := notes.NewService(notes.NewRepo(pool))

	var provider ai.Provider = ai.Disabled{}
	if cfg.AISimilarityURL != "" {
		provider = ai.NewClient(ai.ClientConfig{
			BaseURL:           cfg.AISimilarityURL,
			ChunkSize:         cfg.AIBatchSize,
			ChunkPause:        time.Duration(cfg.AIBatchPauseMS) * time.Millisecond,
			RequestsPerSecond: cfg.AIRequestRPS,
		}, logger)
	}

	scorer := linking.NewScorer(linking.ScorerConfig{
		DateWindowDays: cfg.LinkDateWindowDays,
		ScoreFloor:     cfg.LinkScoreFloor,
		TopK:           cfg.LinkTopK,
	}, provider, logger)

	linkSvc := linking.NewService(linking.Config{
		CommitThreshold: cfg.LinkCommitThreshold,
		ScoreFloor:      cfg.LinkScoreFloor,
		DateWindowDays:  cfg.LinkDateWindowDays,
		TopK:            cfg.LinkTopK,
		UndoWindow:      time.Duration(cfg.UndoWindowSeconds) * time.Second,
	}, noteSvc, apptSvc, clientSvc, scorer, logger)

	return &services{clients: clientSvc, appts: apptSvc, notes: noteSvc, linking: linkSvc}
}

func runServer() error {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.RequestTimeout(time.Duration(cfg.RequestTimeoutMS) * time.Millisecond))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Domain services and routes
	svcs := buildServices(cfg, pool, logger)
	identity.NewHandler(svcs.clients).RegisterRoutes(apiV1)
	scheduling.NewHandler(svcs.appts).RegisterRoutes(apiV1)
	notes.NewHandler(svcs.notes).RegisterRoutes(apiV1)
	linking.NewHandler(svcs.linking).RegisterRoutes(apiV1)

	// Start server
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
