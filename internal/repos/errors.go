package repos

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate reports a store uniqueness violation. The store is the
	// final arbiter for racy read-then-write sequences (template codes,
	// pending-task dedupe); callers decide whether a duplicate is a retry,
	// a no-op, or a user-facing conflict.
	ErrDuplicate = errors.New("duplicate row")
)

const pgUniqueViolation = "23505"

// mapWriteError normalizes driver-level failures into repo sentinels so the
// service layer never inspects pg error codes itself.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Join(ErrDuplicate, err)
	}
	return err
}
