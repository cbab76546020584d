package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ErrMissingSupabaseURL = errors.New("SUPABASE_URL is required")
	ErrMissingSupabaseKey = errors.New("SUPABASE_ANON_KEY is required")
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Opcional: si viene, el API usa Postgres directo. Si no, in-memory.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// Backend hospedado (Supabase)
	SupabaseURL       string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey   string `mapstructure:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `mapstructure:"SUPABASE_JWT_SECRET"`

	// Recordatorios
	FirebaseCredentialsPath string        `mapstructure:"FIREBASE_CREDENTIALS_PATH"`
	ReminderInterval        time.Duration `mapstructure:"REMINDER_INTERVAL"`

	// Cliente de dispositivo
	DeviceDBPath string `mapstructure:"DEVICE_DB_PATH"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
	AppName   string `mapstructure:"APP_NAME"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_JWT_SECRET",
	"FIREBASE_CREDENTIALS_PATH", "REMINDER_INTERVAL",
	"DEVICE_DB_PATH",
	"LOG_LEVEL", "LOG_FORMAT", "APP_NAME",
}

// Load lee .env (si existe) y luego variables de entorno.
// No valida; el caller decide qué es obligatorio (ver Validate).
func Load() (*Config, error) {
	// .env es opcional: en prod vienen del entorno.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("REMINDER_INTERVAL", "1m")
	v.SetDefault("DEVICE_DB_PATH", defaultDevicePath())
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("APP_NAME", "vida-melhor")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.SupabaseURL = strings.TrimRight(strings.TrimSpace(cfg.SupabaseURL), "/")
	cfg.SupabaseAnonKey = strings.TrimSpace(cfg.SupabaseAnonKey)
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = time.Minute
	}

	return cfg, nil
}

// Validate exige la configuración del backend hospedado.
// Sin URL o key no hay forma de autenticar ni consultar: es error fatal de arranque.
func (c *Config) Validate() error {
	if c.SupabaseURL == "" {
		return ErrMissingSupabaseURL
	}
	if _, err := url.ParseRequestURI(c.SupabaseURL); err != nil {
		return fmt.Errorf("SUPABASE_URL is invalid: %w", err)
	}
	if c.SupabaseAnonKey == "" {
		return ErrMissingSupabaseKey
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func defaultDevicePath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "vidamelhor-device.db"
	}
	return filepath.Join(home, ".vidamelhor", "device.db")
}
