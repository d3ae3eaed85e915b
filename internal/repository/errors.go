package repository

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/iliyamo/event-ticket-reservation/internal/model"
)

const (
	mysqlDuplicateEntry    = 1062
	postgresUniqueViolated = "23505"
)

// isDuplicateKey reports whether err is a unique constraint violation from
// either supported driver.
func isDuplicateKey(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == postgresUniqueViolated
	}
	return false
}

// translate maps driver errors onto the model taxonomy.  Missing rows become
// notFound (when non-nil), unique violations become model.ErrConflict and
// everything else is wrapped as a persistence failure for op.
func translate(op string, err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, sql.ErrNoRows):
		return notFound
	case isDuplicateKey(err):
		return model.ErrConflict
	default:
		return model.Persistence(op, err)
	}
}
