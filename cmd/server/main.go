package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"clinicdesk/internal/adapters/http/middleware"
	"clinicdesk/internal/adapters/http/routes"
	"clinicdesk/internal/adapters/persistence/models"
	"clinicdesk/internal/adapters/persistence/repositories"
	"clinicdesk/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	_ "clinicdesk/docs" // Swagger docs
)

// @title ClinicDesk API
// @version 1.0
// @description Multi-tenant clinic management API: patients, prescriptions, payments and the daily queue.

// @contact.name API Support

// @BasePath /api/v1
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	rootCmd := &cobra.Command{
		Use:   "clinicdesk",
		Short: "ClinicDesk API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverMemory {
				return fmt.Errorf("migrate needs a SQL driver, DB_DRIVER is %q", cfg.Database.Driver)
			}

			db, err := config.ConnectDatabase(cfg)
			if err != nil {
				return err
			}
			defer config.CloseDatabase(db)

			return migrate(db)
		},
	}
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create the demo clinic and its catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			repos, closeFn, err := openRepositories(cfg)
			if err != nil {
				return err
			}
			defer closeFn()

			return config.NewSeeder(repos, cfg).Run(cmd.Context())
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	config.SetupLogger(cfg)
	return cfg, nil
}

// openRepositories picks the storage backend from DB_DRIVER. SQL backends are
// migrated on open.
func openRepositories(cfg *config.Config) (*repositories.Repositories, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return repositories.NewMemoryRepositories(), func() {}, nil
	}

	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := config.CloseDatabase(db); err != nil {
			log.Error().Err(err).Msg("close database")
		}
	}

	if err := migrate(db); err != nil {
		closeFn()
		return nil, nil, err
	}
	return repositories.NewGormRepositories(db), closeFn, nil
}

func migrate(db *gorm.DB) error {
	if err := models.AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	log.Info().Msg("database migration completed")
	return nil
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	repos, closeFn, err := openRepositories(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	if cfg.IsDev() {
		if err := config.NewSeeder(repos, cfg).Run(context.Background()); err != nil {
			log.Warn().Err(err).Msg("demo seed failed")
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      "ClinicDesk API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	middleware.Setup(app, cfg)
	scheduler := routes.Setup(app, repos, cfg)

	if cfg.Cron.Enabled {
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer scheduler.Stop()
	}

	go gracefulShutdown(app)

	log.Info().Str("port", cfg.Port).Str("mode", cfg.AppMode).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("server stopped")
}
