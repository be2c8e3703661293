package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var (
	// ErrConnection marks failures to reach the database at all.
	ErrConnection = errors.New("database connection failed")
	// ErrConstraint marks writes the database refused.
	ErrConstraint = errors.New("database constraint violated")
)

// MySQL server error numbers treated as rejected writes.
var constraintErrorNumbers = map[uint16]struct{}{
	1048: {}, // column cannot be null
	1062: {}, // duplicate entry
	1364: {}, // field has no default value
	1406: {}, // data too long
	1451: {}, // row is referenced
	1452: {}, // foreign key fails
	3819: {}, // check constraint violated
}

func classify(err error) error {
	switch {
	case isConnectionError(err):
		return ErrConnection
	case isConstraintError(err):
		return ErrConstraint
	}
	return nil
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return strings.Contains(err.Error(), "database is closed")
}

func isConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		_, ok := constraintErrorNumbers[myErr.Number]
		return ok
	}
	// sqlite reports constraint failures only through the message text
	return strings.Contains(err.Error(), "constraint failed")
}
