package repositories

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// Error codes carried by KnownRequestError.
const (
	CodeUniqueConstraint     = "P2002"
	CodeForeignKeyConstraint = "P2003"
	CodeRecordNotFound       = "P2025"
)

// KnownRequestError is a database failure the client understands: a missing
// record or a violated constraint.
type KnownRequestError struct {
	Code   string
	Model  string
	Target string
	Err    error
}

func (e *KnownRequestError) Error() string {
	switch e.Code {
	case CodeRecordNotFound:
		if e.Target == "" {
			return fmt.Sprintf("%s not found", e.Model)
		}
		return fmt.Sprintf("%s with %s not found", e.Model, e.Target)
	case CodeUniqueConstraint:
		return fmt.Sprintf("unique constraint failed on %s %s", e.Model, e.Target)
	case CodeForeignKeyConstraint:
		return fmt.Sprintf("foreign key constraint failed on %s %s", e.Model, e.Target)
	}
	return fmt.Sprintf("%s: request failed with code %s", e.Model, e.Code)
}

func (e *KnownRequestError) Unwrap() error { return e.Err }

// UnknownRequestError wraps any database failure without a known code.
type UnknownRequestError struct {
	Model string
	Err   error
}

func (e *UnknownRequestError) Error() string {
	return fmt.Sprintf("%s: database request failed: %v", e.Model, e.Err)
}

func (e *UnknownRequestError) Unwrap() error { return e.Err }

// ValidationError reports a query or payload rejected before any SQL ran.
type ValidationError struct {
	Model  string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s query: %s", e.Model, e.Reason)
	}
	return fmt.Sprintf("invalid %s query: field %q: %s", e.Model, e.Field, e.Reason)
}

// InitializationError is returned when the database cannot be opened or migrated.
type InitializationError struct {
	Err error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("database initialization failed: %v", e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// PanicError carries a panic recovered inside a transaction.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in transaction: %v", e.Value)
}

// IsNotFound reports whether err is a record-not-found error.
func IsNotFound(err error) bool { return hasCode(err, CodeRecordNotFound) }

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool { return hasCode(err, CodeUniqueConstraint) }

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool { return hasCode(err, CodeForeignKeyConstraint) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func hasCode(err error, code string) bool {
	var known *KnownRequestError
	return errors.As(err, &known) && known.Code == code
}

var (
	sqliteConstraintTarget   = regexp.MustCompile(`constraint failed: ([\w.,\s]+)`)
	postgresConstraintTarget = regexp.MustCompile(`constraint "([^"]+)"`)
)

// translateError maps a gorm or driver error onto the client error taxonomy.
func translateError(model, target string, err error) error {
	if err == nil {
		return nil
	}
	var (
		known *KnownRequestError
		verr  *ValidationError
		unk   *UnknownRequestError
	)
	if errors.As(err, &known) || errors.As(err, &verr) || errors.As(err, &unk) {
		return err
	}

	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &KnownRequestError{Code: CodeRecordNotFound, Model: model, Target: target, Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(msg, "UNIQUE constraint failed"),
		strings.Contains(msg, "duplicate key value"):
		return &KnownRequestError{Code: CodeUniqueConstraint, Model: model, Target: constraintTarget(msg), Err: err}
	case errors.Is(err, gorm.ErrForeignKeyViolated),
		strings.Contains(msg, "FOREIGN KEY constraint failed"),
		strings.Contains(msg, "violates foreign key constraint"):
		return &KnownRequestError{Code: CodeForeignKeyConstraint, Model: model, Target: constraintTarget(msg), Err: err}
	}
	return &UnknownRequestError{Model: model, Err: err}
}

func constraintTarget(msg string) string {
	if m := sqliteConstraintTarget.FindStringSubmatch(msg); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := postgresConstraintTarget.FindStringSubmatch(msg); m != nil {
		return m[1]
	}
	return ""
}
