package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

// Mismo esquema que las tablas del backend hospedado, para correr el API contra
// un Postgres propio.
var migrations = []migration{
	{
		version: 1,
		name:    "profiles",
		sql: `
CREATE TABLE IF NOT EXISTS profiles (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL DEFAULT '',
  email         TEXT NOT NULL DEFAULT '',
  phone         TEXT NOT NULL DEFAULT '',
  cpf           TEXT NOT NULL DEFAULT '',
  address       TEXT NOT NULL DEFAULT '',
  special_care  TEXT NOT NULL DEFAULT '',
  carer         BOOLEAN NOT NULL DEFAULT FALSE,
  carer_id      TEXT NULL REFERENCES profiles(id) ON DELETE SET NULL,
  device_token  TEXT NULL,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_profiles_carer_id ON profiles(carer_id);
`,
	},
	{
		version: 2,
		name:    "medicines",
		sql: `
CREATE TABLE IF NOT EXISTS medicines (
  id                BIGSERIAL PRIMARY KEY,
  user_id           TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  nome              TEXT NOT NULL,
  dose              TEXT NOT NULL,
  estoque           INTEGER NOT NULL DEFAULT 0 CHECK (estoque >= 0),
  frequencia_horas  INTEGER NULL CHECK (frequencia_horas IS NULL OR frequencia_horas > 0),
  ultima_dose       TIMESTAMPTZ NULL,
  created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_medicines_user_id ON medicines(user_id);
`,
	},
	{
		version: 3,
		name:    "consultation",
		sql: `
CREATE TABLE IF NOT EXISTS consultation (
  id             BIGSERIAL PRIMARY KEY,
  user_id        TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
  nome           TEXT NOT NULL,
  data_hora      TIMESTAMPTZ NOT NULL,
  tipo           TEXT NOT NULL CHECK (tipo IN ('presencial', 'telemedicina')),
  medico         TEXT NOT NULL DEFAULT '',
  especialidade  TEXT NOT NULL DEFAULT '',
  created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_consultation_user_data ON consultation(user_id, data_hora);
`,
	},
	{
		version: 4,
		name:    "catalog",
		sql: `
CREATE TABLE IF NOT EXISTS pharmacies (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  address         TEXT NULL,
  contact         TEXT NULL,
  email           TEXT NOT NULL DEFAULT '',
  email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
  active          BOOLEAN NOT NULL DEFAULT TRUE,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS medications (
  id              TEXT PRIMARY KEY,
  name            TEXT NOT NULL,
  slug            TEXT NOT NULL,
  description     TEXT NULL,
  category_id     TEXT NULL,
  is_generic      BOOLEAN NOT NULL DEFAULT FALSE,
  pharmacy_id     TEXT NOT NULL REFERENCES pharmacies(id) ON DELETE CASCADE,
  stock           INTEGER NOT NULL DEFAULT 0,
  price_in_cents  BIGINT NOT NULL DEFAULT 0,
  created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_medications_pharmacy ON medications(pharmacy_id);
`,
	},
}

// ApplyMigrations aplica en orden las migraciones que falten, cada una en su transacción.
// Devuelve cuántas aplicó.
func ApplyMigrations(ctx context.Context, db *sql.DB) (int, error) {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
  version    INTEGER PRIMARY KEY,
  name       TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`); err != nil {
		return 0, fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	applied := 0
	for _, m := range migrations {
		var exists int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM schema_migrations WHERE version = $1`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return applied, fmt.Errorf("check migration version %d: %w", m.version, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return applied, fmt.Errorf("begin migration tx: %w", err)
		}

		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations(version, name) VALUES($1, $2)`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return applied, fmt.Errorf("record migration version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return applied, fmt.Errorf("commit migration version %d: %w", m.version, err)
		}
		applied++
	}

	return applied, nil
}
