package store

import (
	"database/sql"
	"errors"

	sqlite3 "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Common store errors.
var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("transaction not found")
	// ErrDuplicateSourceID is returned when an insert collides with an
	// existing non-null source_id and the store's policy is DuplicateReject.
	ErrDuplicateSourceID = errors.New("duplicate source_id")
)

// Kind discriminates store operation outcomes so that callers can react
// programmatically instead of treating every failure alike.
type Kind int

const (
	// KindSuccess means the operation completed (KindOf(nil)).
	KindSuccess Kind = iota
	// KindNotFound means the target row does not exist.
	KindNotFound
	// KindConstraintViolation covers unique/NOT NULL/foreign key failures,
	// notably source_id collisions - the deliberate dedup signal.
	KindConstraintViolation
	// KindInvalidStatement means the SQL itself was rejected by the engine.
	KindInvalidStatement
	// KindTransient covers busy/locked/IO conditions worth retrying.
	KindTransient
	// KindUnknown is everything the store cannot classify.
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindSuccess:
		return "success"
	case KindNotFound:
		return "not_found"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindInvalidStatement:
		return "invalid_statement"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// KindOf classifies err into a Kind. It understands the store's sentinel
// errors as well as the SQLite result codes surfaced by the driver.
func KindOf(err error) Kind {
	if err == nil {
		return KindSuccess
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows) {
		return KindNotFound
	}
	if errors.Is(err, ErrDuplicateSourceID) {
		return KindConstraintViolation
	}

	var se *sqlite3.Error
	if errors.As(err, &se) {
		code := se.Code()
		switch code & 0xff {
		case sqlite3lib.SQLITE_CONSTRAINT:
			return KindConstraintViolation
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED,
			sqlite3lib.SQLITE_IOERR, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_FULL:
			return KindTransient
		case sqlite3lib.SQLITE_ERROR, sqlite3lib.SQLITE_MISUSE, sqlite3lib.SQLITE_RANGE:
			return KindInvalidStatement
		}
	}
	return KindUnknown
}

// isUniqueViolation reports whether err is specifically a UNIQUE constraint
// failure, as opposed to any other constraint class.
func isUniqueViolation(err error) bool {
	var se *sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3lib.SQLITE_CONSTRAINT_UNIQUE ||
		code == sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY
}
