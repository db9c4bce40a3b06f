package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository
// method can run standalone or inside a caller's transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateGoogleID = errors.New("google account already linked")
)

const uniqueViolation = pq.ErrorCode("23505")

// translateUniqueViolation maps Postgres unique violations on the users table
// onto repository errors and passes everything else through.
func translateUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_google_id_key":
		return ErrDuplicateGoogleID
	default:
		return err
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}
