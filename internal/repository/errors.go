// Package repository holds the MySQL data access for every entity.  All
// reads and writes are scoped by user id; a row owned by another user is
// reported exactly like a missing one.
package repository

import (
	"database/sql"
	"errors"

	"github.com/iliyamo/smart-zaiko/internal/database"
)

// ErrNotFound is returned when no row matches the id and owner.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a unique name or email already exists.
var ErrDuplicate = errors.New("duplicate")

// ErrStockConflict is returned when a conditional stock update matched no
// row because the result would be negative or the variant has no inventory.
var ErrStockConflict = errors.New("stock conflict")

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return ErrNotFound
	case database.IsDuplicate(err):
		return ErrDuplicate
	}
	return err
}

// affectedOne turns a zero-row update or delete into ErrNotFound.
func affectedOne(res sql.Result, err error) error {
	if err != nil {
		return translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
