// Package repository implements the reservation stores on MySQL.  Driver
// errors are translated into the service error taxonomy here so that
// handlers never see database/sql or driver types.
package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/railway-reservation/internal/service"
)

// MySQL server error numbers this package reacts to.
const (
	errDupEntry        = 1062
	errLockWaitTimeout = 1205
	errDeadlock        = 1213
)

// classify maps driver errors onto service errors, keeping the original
// error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", service.ErrNotFound, err)
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDupEntry:
			return fmt.Errorf("%w: %v", service.ErrDuplicate, err)
		case errLockWaitTimeout, errDeadlock:
			return fmt.Errorf("%w: %v", service.ErrStorageUnavailable, err)
		}
		return err
	}
	if errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", service.ErrStorageUnavailable, err)
	}
	return err
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, service.ErrNotFound)
}
