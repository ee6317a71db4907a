package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the services. Callers classify failures
// with errors.Is; the API layer maps each one to an HTTP status.
var (
	ErrNotFound           = errors.New("not found")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrNameConflict       = errors.New("name conflict")
	ErrPortConflict       = errors.New("port conflict")
	ErrRuntimeUnavailable = errors.New("runtime unavailable")
	ErrInvalidState       = errors.New("invalid state")
	ErrOperationFailed    = errors.New("operation failed")
)

const pgUniqueViolation = "23505"

// uniqueViolation reports whether err is a Postgres unique constraint
// violation, and if so on which constraint.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// mapGetErr converts pgx.ErrNoRows into ErrNotFound for single-row lookups.
func mapGetErr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, resource, id)
	}
	return fmt.Errorf("get %s %s: %w", resource, id, err)
}
