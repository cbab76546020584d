// Command vidamelhor es el cliente de dispositivo: sesión, carrito y
// navegación persistidos en SQLite local, datos en el backend hospedado.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vida-melhor/internal/adapters/auth/supabase"
	"vida-melhor/internal/adapters/storage/postgrest"
	"vida-melhor/internal/adapters/storage/sqlite"
	"vida-melhor/internal/app/account"
	"vida-melhor/internal/app/cart"
	"vida-melhor/internal/app/navigation"
	"vida-melhor/internal/app/session"
	"vida-melhor/internal/config"
	"vida-melhor/internal/domain/caretakers"
	"vida-melhor/internal/domain/catalog"
	"vida-melhor/internal/domain/consultations"
	"vida-melhor/internal/domain/dashboard"
	"vida-melhor/internal/domain/medicines"
	"vida-melhor/internal/domain/profiles"
	"vida-melhor/internal/domain/viewer"
	"vida-melhor/internal/platform/logger"
)

var errNotSignedIn = errors.New("not signed in: run `vidamelhor login` first")

// device agrupa todo lo que vive durante una invocación.
type device struct {
	log  logger.Logger
	gw   *supabase.Gateway
	nav  *navigation.Controller
	boot *session.Bootstrapper
	cart *cart.Cart

	// lastPage es la pantalla de la corrida anterior; el arranque con sesión va a home igual.
	lastPage navigation.Screen

	accounts      *account.Service
	profiles      *profiles.Service
	medicines     *medicines.Service
	reminders     *medicines.Reminders
	consultations *consultations.Service
	caretakers    *caretakers.Service
	catalog       *catalog.Service
	dashboard     *dashboard.Service

	closers []func() error
}

func main() {
	d := &device{}

	rootCmd := &cobra.Command{
		Use:           "vidamelhor",
		Short:         "Vida Melhor device client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return d.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			d.close()
		},
	}

	rootCmd.AddCommand(
		loginCmd(d),
		registerCmd(d),
		logoutCmd(d),
		statusCmd(d),
		goCmd(d),
		backCmd(d),
		homeCmd(d),
		cartCmd(d),
		medsCmd(d),
		eldersCmd(d),
		consultasCmd(d),
		catalogCmd(d),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		d.close()
		os.Exit(1)
	}
}

func (d *device) open(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.log = logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
		Output: os.Stderr,
	})

	if err := os.MkdirAll(filepath.Dir(cfg.DeviceDBPath), 0o700); err != nil {
		return fmt.Errorf("create device dir: %w", err)
	}
	db, err := sqlite.Open(cfg.DeviceDBPath)
	if err != nil {
		return err
	}
	d.closers = append(d.closers, db.Close)

	store, err := sqlite.NewKV(db)
	if err != nil {
		return err
	}

	d.gw, err = supabase.NewGateway(supabase.Config{URL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey}, store, d.log)
	if err != nil {
		return err
	}
	rest, err := postgrest.NewClient(cfg.SupabaseURL, cfg.SupabaseAnonKey, d.gw.AccessToken)
	if err != nil {
		return err
	}

	profileRepo := postgrest.NewProfilesRepo(rest)
	d.profiles = profiles.NewService(profileRepo)
	d.medicines = medicines.NewService(postgrest.NewMedicinesRepo(rest))
	d.reminders = medicines.NewReminders(d.medicines, d.log)
	d.consultations = consultations.NewService(postgrest.NewConsultationsRepo(rest))
	d.caretakers = caretakers.NewService(profileRepo, d.log)
	d.catalog = catalog.NewService(postgrest.NewCatalogRepo(rest))
	d.dashboard = dashboard.NewService(d.medicines, d.reminders, d.catalog)

	d.accounts = account.NewService(d.gw, d.profiles, store, d.log)
	d.cart = cart.New(store, d.log)
	d.cart.Load(ctx)

	d.nav = navigation.New(store, d.log)
	d.lastPage, _ = d.nav.Restore(ctx)
	d.boot = session.New(d.gw, d.nav, d.accounts.EnsureProfile, d.log)
	d.boot.Start(ctx)
	d.closers = append(d.closers, func() error { d.boot.Close(); return nil })

	return nil
}

func (d *device) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		_ = d.closers[i]()
	}
	d.closers = nil
}

// viewer resuelve quién mira a partir de la sesión guardada.
func (d *device) viewer(ctx context.Context) (viewer.Viewer, error) {
	s, err := d.gw.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errNotSignedIn
	}
	return viewer.Resolve(ctx, d.profiles, s.User.ID)
}

// show registra la pantalla del comando en la navegación.
func (d *device) show(ctx context.Context, sc navigation.Screen) {
	if err := d.nav.Navigate(ctx, sc); err != nil {
		d.log.Warn("navigate failed", map[string]any{"screen": string(sc), "err": err})
	}
}
