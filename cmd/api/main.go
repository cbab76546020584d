package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vida-melhor/internal/adapters/auth/supabase"
	"vida-melhor/internal/adapters/push/firebase"
	"vida-melhor/internal/adapters/realtime"
	"vida-melhor/internal/adapters/storage/postgres"
	"vida-melhor/internal/config"
	"vida-melhor/internal/platform/logger"
	"vida-melhor/internal/ports/auth"
	"vida-melhor/internal/ports/notify"
	"vida-melhor/internal/router"
	"vida-melhor/internal/workers"
)

// @title Vida Melhor API
// @version 1.0
// @description API de medicamentos, consultas, catálogo y vínculo cuidador/idoso.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	rootCmd := &cobra.Command{
		Use:   "vida-melhor-api",
		Short: "Vida Melhor API server",
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
		Short: "Start the HTTP server and the reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required to migrate")
			}

			db, err := postgres.Open(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := postgres.ApplyMigrations(cmd.Context(), db)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", n)
			return nil
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repos := router.MemoryRepos()
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer db.Close()
		repos = router.PostgresRepos(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage", nil)
	}

	verifier, err := buildVerifier(cfg)
	if err != nil {
		return err
	}
	if verifier == nil {
		log.Warn("no auth verifier configured, accepting X-Debug-User-ID", nil)
	}

	hub := realtime.NewHub(log.With(map[string]any{"component": "realtime"}))
	notifiers := notify.Multi{hub}
	if cfg.FirebaseCredentialsPath != "" {
		fcm, err := firebase.NewNotifier(ctx, cfg.FirebaseCredentialsPath, log.With(map[string]any{"component": "fcm"}))
		if err != nil {
			return err
		}
		notifiers = append(notifiers, fcm)
	}

	manager := workers.NewManager(log.With(map[string]any{"component": "workers"}))
	manager.Register(workers.NewReminderWorker(
		repos.Medicines,
		repos.Profiles,
		notifiers,
		cfg.ReminderInterval,
		log.With(map[string]any{"worker": "dose-reminders"}),
	))
	manager.Start(ctx)
	defer manager.Stop()

	handler := router.NewRouter(router.Options{
		AuthVerifier: verifier,
		Repos:        &repos,
		Hub:          hub,
		Logger:       log,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "env": cfg.Env})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
	}

	cancel()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server stopped", nil)
	return nil
}

func openDatabase(ctx context.Context, dsn string, log logger.Logger) (*sql.DB, error) {
	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		return nil, err
	}
	n, err := postgres.ApplyMigrations(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info("database ready", map[string]any{"applied_migrations": n})
	return db, nil
}

// buildVerifier prefiere validar el JWT localmente; sin secreto consulta /auth/v1/user.
// Sin backend configurado devuelve nil (modo dev).
func buildVerifier(cfg *config.Config) (auth.AuthVerifier, error) {
	if cfg.SupabaseJWTSecret != "" {
		return supabase.NewJWTVerifier(cfg.SupabaseJWTSecret), nil
	}
	if cfg.SupabaseURL != "" && cfg.SupabaseAnonKey != "" {
		return supabase.NewRemoteVerifier(supabase.Config{URL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey})
	}
	if !cfg.IsDev() {
		return nil, cfg.Validate()
	}
	return nil, nil
}
