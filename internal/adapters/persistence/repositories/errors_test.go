package repositories

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"clinicdesk/internal/core/domain"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, domain.ErrNotFound},
		{"wrapped not found", fmt.Errorf("find: %w", gorm.ErrRecordNotFound), domain.ErrNotFound},
		{"mysql row referenced", &mysql.MySQLError{Number: 1451, Message: "fk"}, domain.ErrReferentialIntegrity},
		{"mysql missing parent", &mysql.MySQLError{Number: 1452, Message: "fk"}, domain.ErrReferentialIntegrity},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "dup"}, domain.ErrDuplicateEntry},
		{"postgres fk", &pgconn.PgError{Code: "23503", ConstraintName: "fk_items_drug"}, domain.ErrReferentialIntegrity},
		{"postgres unique", &pgconn.PgError{Code: "23505", ConstraintName: "uniq_email"}, domain.ErrDuplicateEntry},
		{"bad conn", driver.ErrBadConn, domain.ErrStorageUnavailable},
		{"mysql invalid conn", mysql.ErrInvalidConn, domain.ErrStorageUnavailable},
		{"deadline", context.DeadlineExceeded, domain.ErrStorageUnavailable},
		{"domain passthrough", domain.ErrQueueAlreadyOpen, domain.ErrQueueAlreadyOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.in)
			assert.True(t, errors.Is(got, tt.want), "got %v", got)
		})
	}
}

func TestTranslateError_Passthrough(t *testing.T) {
	assert.NoError(t, translateError(nil))

	other := errors.New("syntax error near SELECT")
	assert.Equal(t, other, translateError(other))

	unknownMySQL := &mysql.MySQLError{Number: 1064, Message: "syntax"}
	assert.Equal(t, error(unknownMySQL), translateError(unknownMySQL))

	cross := fmt.Errorf("%w: drug 4", domain.ErrCrossTenantViolation)
	assert.Equal(t, cross, translateError(cross))
}
