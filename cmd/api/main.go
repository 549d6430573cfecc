package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"surplus-market/internal/config"
	"surplus-market/internal/database"
	"surplus-market/internal/middleware"
	"surplus-market/internal/model"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "surplus-market",
		Usage: "surplus food marketplace API",
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the scheduled sweeps",
				Action: serve,
			},
			{
				Name:  "migrate",
				Usage: "apply database migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "down", Usage: "roll back the most recent migration"},
				},
				Action: migrate,
			},
			{
				Name:      "sweep",
				Usage:     "run one scheduled sweep immediately",
				ArgsUsage: "<job>",
				Action:    sweep,
			},
			{
				Name:  "token",
				Usage: "issue a bearer token for local testing",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Usage: "consumer or restaurant ID", Required: true},
					&cli.StringFlag{Name: "role", Usage: "consumer or restaurant", Value: string(model.RoleConsumer)},
					&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
				},
				Action: token,
			},
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serve(c *cli.Context) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger, cfg.App.Env)
	logger.Info().Str("env", cfg.App.Env).Msg("starting surplus-market API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			return err
		}
	}

	app, err := newApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if cfg.Scheduler.Enabled {
		app.scheduler.Start()
	} else {
		logger.Info().Msg("scheduled sweeps disabled")
	}

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		// In-flight requests finish before the scheduler and pool are closed.
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

func migrate(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger, cfg.App.Env)

	if c.Bool("down") {
		return database.Rollback(cfg.Database.ConnectionString(), logger)
	}
	return database.Migrate(cfg.Database.ConnectionString(), logger)
}

func sweep(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("sweep requires a job name", 2)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Logger, cfg.App.Env)

	app, err := newApplication(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer app.close()

	if err := app.scheduler.RunNow(c.Context, name); err != nil {
		return fmt.Errorf("%w (known jobs: %s)", err, strings.Join(app.scheduler.Names(), ", "))
	}
	return nil
}

func token(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if cfg.App.IsProduction() {
		return cli.Exit("token issuing is disabled in production", 1)
	}

	subject, err := uuid.Parse(c.String("subject"))
	if err != nil {
		return fmt.Errorf("invalid subject: %w", err)
	}
	role := model.Role(c.String("role"))
	if role != model.RoleConsumer && role != model.RoleRestaurant {
		return fmt.Errorf("invalid role %q", role)
	}

	signed, err := middleware.IssueToken(cfg.Auth.JWTSecret, model.Identity{ID: subject, Role: role}, c.Duration("ttl"), time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, signed)
	return nil
}
