package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"rlserver-tools/internal/repository"
)

var (
	ErrNotFound      = repository.ErrNotFound
	ErrDuplicateCode = repository.ErrDuplicateCode
)

const pgUniqueViolation = "23505"

type scanTarget interface {
	Scan(dest ...any) error
}

func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%s: %w: %s", op, ErrDuplicateCode, pgErr.Detail)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// whereClause joins non-empty conditions; args numbering is the caller's job.
func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}
