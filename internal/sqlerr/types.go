// Package sqlerr translates database driver errors into application errors.
//
// It parses SQLSTATE codes coming out of the Postgres driver and converts
// them into user-facing messages, e.g. a unique violation on users.login
// becomes a 400 with code USER_ALREADY_EXISTS.
package sqlerr

import "fmt"

// Code classifies a database error into a category the application can
// switch on, independent of the raw SQLSTATE.
type Code int

const (
	// Other covers every error not mapped to a specific category.
	Other Code = iota
	UniqueViolation
	ForeignKeyViolation
	NotNullViolation
	CheckViolation
)

// Severity mirrors the Postgres error severity field.
type Severity int

const (
	SeverityError Severity = iota
	SeverityFatal
	SeverityPanic
)

// MapCode maps a SQLSTATE code to a Code category.
//
// Class 23 is "integrity constraint violation":
//
//	23502 not_null_violation
//	23503 foreign_key_violation
//	23505 unique_violation
//	23514 check_violation
func MapCode(sqlstate string) Code {
	switch sqlstate {
	case "23505":
		return UniqueViolation
	case "23503":
		return ForeignKeyViolation
	case "23502":
		return NotNullViolation
	case "23514":
		return CheckViolation
	default:
		return Other
	}
}

// MapSeverity maps the Postgres severity string to a Severity.
func MapSeverity(severity string) Severity {
	switch severity {
	case "FATAL":
		return SeverityFatal
	case "PANIC":
		return SeverityPanic
	default:
		return SeverityError
	}
}

// Error is a normalized database error carrying the metadata needed to build
// user-facing messages (table, column, constraint) alongside the original
// driver error.
type Error struct {
	Code           Code
	Severity       Severity
	DatabaseCode   string
	Message        string
	SchemaName     string
	TableName      string
	ColumnName     string
	DataTypeName   string
	ConstraintName string

	driverErr error
}

func (e *Error) Error() string {
	if e.TableName != "" {
		return fmt.Sprintf("database error %s on table %s: %s", e.DatabaseCode, e.TableName, e.Message)
	}
	return fmt.Sprintf("database error %s: %s", e.DatabaseCode, e.Message)
}

// Unwrap exposes the original driver error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.driverErr
}
