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

	"github.com/aftercare/aftercare/internal/config"
	"github.com/aftercare/aftercare/internal/domain/alert"
	"github.com/aftercare/aftercare/internal/domain/conversation"
	"github.com/aftercare/aftercare/internal/domain/followup"
	"github.com/aftercare/aftercare/internal/domain/patient"
	"github.com/aftercare/aftercare/internal/domain/triage"
	"github.com/aftercare/aftercare/internal/platform/auth"
	"github.com/aftercare/aftercare/internal/platform/classifier"
	"github.com/aftercare/aftercare/internal/platform/db"
	"github.com/aftercare/aftercare/internal/platform/messenger"
	"github.com/aftercare/aftercare/internal/platform/middleware"
	"github.com/aftercare/aftercare/internal/webhook"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aftercare-server",
		Short: "Post-surgical follow-up and triage server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the follow-up server",
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
			schema, _ := cmd.Flags().GetString("schema")
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
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
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
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
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
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback last migration (not supported)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("WARNING: migrate down is destructive and not supported by the built-in runner.")
			fmt.Println("Roll forward with a new migration instead.")
			return nil
		},
	})

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

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

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, ""); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully. Run: aftercare-server migrate up --schema tenant_" + name)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.AlertPhysicianPhone == "" {
		logger.Warn().Msg("ALERT_PHYSICIAN_PHONE is not set; alert delivery will fail until it is configured")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Outbound transports
	msgr := messenger.NewWhatsAppClient(messenger.WhatsAppConfig{
		BaseURL:     cfg.WhatsAppBaseURL,
		PhoneID:     cfg.WhatsAppPhoneID,
		AccessToken: cfg.WhatsAppToken,
	}, logger)

	var cls classifier.Classifier
	if cfg.ClassifierURL != "" {
		cls = classifier.NewHTTPClassifier(classifier.HTTPConfig{
			URL:     cfg.ClassifierURL,
			APIKey:  cfg.ClassifierAPIKey,
			Timeout: cfg.ClassifierTimeout,
		}, logger)
	} else {
		logger.Warn().Msg("CLASSIFIER_URL is not set; triage runs on rules alone")
	}

	// Repositories and services
	patientRepo := patient.NewPatientRepoPG(pool)
	patientSvc := patient.NewService(patientRepo)

	followRepo := followup.NewFollowUpRepoPG(pool)
	followSvc := followup.NewService(followRepo)

	assessmentRepo := triage.NewAssessmentRepoPG(pool)
	triageSvc := triage.NewService(assessmentRepo, cls, logger)

	// Alert queue: AMQP when a broker is configured, in-process otherwise.
	send := func(ctx context.Context, a *alert.Alert) error {
		return msgr.Send(ctx, cfg.AlertPhysicianPhone, a.Format())
	}
	var queue alert.Queue
	if cfg.AMQPURL != "" {
		queue, err = alert.NewAMQPQueue(cfg.AMQPURL, cfg.AlertQueueName, send, cfg.AlertMaxRetries, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to AMQP broker")
		}
		logger.Info().Str("queue", cfg.AlertQueueName).Msg("alert dispatch via AMQP")
	} else {
		queue = alert.NewMemoryQueue(send, alert.MemoryQueueConfig{
			MaxRetries: cfg.AlertMaxRetries,
		}, logger)
		logger.Info().Msg("alert dispatch via in-process queue")
	}
	defer queue.Close()

	dispatcher := alert.NewDispatcher(assessmentRepo, queue, logger)

	// Conversation pipeline
	stateRepo := conversation.NewStateRepoPG(pool)
	processedRepo := conversation.NewProcessedRepoPG(pool)
	manager := conversation.NewManager(
		patientSvc, followSvc, triageSvc, dispatcher,
		msgr, cls, stateRepo, processedRepo, logger,
	)

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	rateLimitCfg := middleware.RateLimitConfig{
		MaxRequests: cfg.RateLimitRequests,
		Window:      cfg.RateLimitWindow,
	}

	// Provider webhook: signature-verified inside the handler, never behind
	// clinician auth. Rate limited so a flood cannot starve the pipeline.
	webhookGroup := e.Group("/webhook")
	webhookGroup.Use(middleware.RateLimit(rateLimitCfg))
	webhookGroup.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	webhookHandler := webhook.NewHandler(webhook.Config{
		VerifyToken: cfg.WhatsAppVerifyToken,
		AppSecret:   cfg.WhatsAppAppSecret,
	}, manager, logger)
	webhookHandler.RegisterRoutes(webhookGroup)

	// Clinician API
	apiV1 := e.Group("/api/v1")
	if cfg.IsDev() {
		apiV1.Use(auth.DevAuthMiddleware())
	} else {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}
	apiV1.Use(db.TenantMiddleware(pool, cfg.DefaultTenant))
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	patient.NewHandler(patientSvc).RegisterRoutes(apiV1)
	followup.NewHandler(followSvc).RegisterRoutes(apiV1)
	triage.NewHandler(triageSvc).RegisterRoutes(apiV1)
	alert.NewHandler(dispatcher, triageSvc, patientSvc, followSvc).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
