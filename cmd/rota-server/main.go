package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/shadynafie/rotato-sub000/internal/config"
	"github.com/shadynafie/rotato-sub000/internal/domain/coverage"
	"github.com/shadynafie/rotato-sub000/internal/domain/oncall"
	"github.com/shadynafie/rotato-sub000/internal/domain/rota"
	"github.com/shadynafie/rotato-sub000/internal/domain/staff"
	"github.com/shadynafie/rotato-sub000/internal/platform/auth"
	"github.com/shadynafie/rotato-sub000/internal/platform/db"
	"github.com/shadynafie/rotato-sub000/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rota-server",
		Short: "Hospital rota and coverage API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the rota API server",
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

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" || os.Getenv("ENV") == "" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("unsafe configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			SigningKey: []byte(cfg.AuthSecret),
		}))
	}

	// Health check
	e.GET("/health", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")

	// -- Register Domain Handlers --

	// Staff domain
	clinicianRepo := staff.NewClinicianRepoPG(pool)
	dutyRepo := staff.NewDutyRepoPG(pool)
	staffSvc := staff.NewService(clinicianRepo, dutyRepo)
	staffHandler := staff.NewHandler(staffSvc)
	staffHandler.RegisterRoutes(apiV1)

	// On-call domain
	oncallConfigRepo := oncall.NewConfigRepoPG(pool)
	oncallSlotRepo := oncall.NewSlotRepoPG(pool)
	oncallAssignmentRepo := oncall.NewAssignmentRepoPG(pool)
	oncallPatternRepo := oncall.NewPatternRepoPG(pool)
	oncallSvc := oncall.NewService(oncallConfigRepo, oncallSlotRepo, oncallAssignmentRepo, oncallPatternRepo)
	oncallHandler := oncall.NewHandler(oncallSvc)
	oncallHandler.RegisterRoutes(apiV1)

	// Rota domain
	jobPlanRepo := rota.NewJobPlanRepoPG(pool)
	leaveRepo := rota.NewLeaveRepoPG(pool)
	overrideRepo := rota.NewOverrideRepoPG(pool)
	derivedRepo := rota.NewDerivedOverrideRepoPG(pool)
	compositor := rota.NewCompositor(clinicianRepo, jobPlanRepo, leaveRepo, overrideRepo, derivedRepo, oncallSvc, cfg.RestDays)
	runTx := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.WithTx(ctx, pool, fn)
	}
	rotaSvc := rota.NewService(jobPlanRepo, leaveRepo, overrideRepo, derivedRepo, compositor, runTx, logger)
	rotaHandler := rota.NewHandler(rotaSvc)
	rotaHandler.RegisterRoutes(apiV1)

	// Coverage domain
	requestRepo := coverage.NewRequestRepoPG(pool)
	detector := coverage.NewDetector(jobPlanRepo, leaveRepo, clinicianRepo, dutyRepo, oncallSvc)
	scorer := coverage.NewScorer(clinicianRepo, dutyRepo, jobPlanRepo, leaveRepo, requestRepo, oncallSvc, cfg.RestDays, cfg.WorkloadWindowDays)
	coverageSvc := coverage.NewService(requestRepo, detector, scorer, derivedRepo, logger)
	coverageHandler := coverage.NewHandler(coverageSvc)
	coverageHandler.RegisterRoutes(apiV1)

	// Leave writes trigger coverage detection inside the same transaction;
	// on-call mutations trigger conflict re-detection over affected dates.
	rotaSvc.SetCoverageSink(coverageSvc)
	oncallSvc.SetConflictSink(coverageSvc)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
