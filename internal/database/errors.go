package database

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
)

// MySQL server error numbers the service reacts to.
const (
	codeDuplicateEntry  = 1062
	codeLockWaitTimeout = 1205
	codeDeadlock        = 1213
	codeLockNoWait      = 3572
)

// ClassifyError decides whether a failed transaction is worth retrying.
func ClassifyError(err error) ErrorClass {
	if err == nil || errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case codeDeadlock:
			return ErrorClassDeadlock
		case codeLockWaitTimeout, codeLockNoWait:
			return ErrorClassTransient
		}
		return ErrorClassPermanent
	}

	if errors.Is(err, mysql.ErrInvalidConn) {
		return ErrorClassTransient
	}
	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient || class == ErrorClassDeadlock
}

// IsDuplicate reports a unique key violation.
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == codeDuplicateEntry
}
