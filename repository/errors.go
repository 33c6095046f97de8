package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when an insert violates a unique constraint
// (email, external catalog id). Uniqueness is enforced at the storage
// level, so callers must treat this as an expected, recoverable error.
var ErrDuplicate = errors.New("duplicate record")

const mysqlDuplicateEntry = 1062

// isDuplicateErr reports whether err is a MySQL duplicate-key error.
func isDuplicateErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}
