package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Códigos SQLSTATE que la UI del cuidador distingue.
const (
	codeUndefinedColumn    = "42703"
	codeInsufficientPrivil = "42501"
)

// translate mapea errores de Postgres a los sentinels de dominio dados.
// Si no es un error conocido, lo devuelve tal cual.
func translate(err error, schemaMismatch, permissionDenied error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case codeUndefinedColumn:
		return fmt.Errorf("%w: %s", schemaMismatch, pgErr.Message)
	case codeInsufficientPrivil:
		return fmt.Errorf("%w: %s", permissionDenied, pgErr.Message)
	}
	return err
}
