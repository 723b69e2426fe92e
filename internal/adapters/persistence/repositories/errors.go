package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"clinicdesk/internal/core/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// MySQL error numbers
const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlRowIsReferenced2 = 1217
	mysqlNoReferencedRow2 = 1216
)

// Postgres SQLSTATE codes
const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
)

// translateError maps driver errors onto domain errors. Domain errors and
// nil pass through unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlRowIsReferenced, mysqlRowIsReferenced2, mysqlNoReferencedRow, mysqlNoReferencedRow2:
			return fmt.Errorf("%w: %s", domain.ErrReferentialIntegrity, mysqlErr.Message)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, mysqlErr.Message)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrReferentialIntegrity, pgErr.ConstraintName)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEntry, pgErr.ConstraintName)
		}
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return err
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrCrossTenantViolation,
		domain.ErrReferentialIntegrity,
		domain.ErrDuplicateEntry,
		domain.ErrQueueAlreadyOpen,
		domain.ErrNoOpenQueue,
		domain.ErrStorageUnavailable,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
