package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Reasons a query can be rejected before any execution is attempted.
var (
	// ErrUnsupportedType indicates that no registered interface carries the
	// query's type.
	ErrUnsupportedType = errors.New("unsupported query type")

	// ErrUnsupportedInterface indicates that the query names an interface
	// that is not registered.
	ErrUnsupportedInterface = errors.New("unsupported interface")
)

// InvalidQueryError is raised by validation before any unit runs. It is
// fatal to the fulfillment call and carries the rejection reason as a
// wrapped sentinel so callers can branch with errors.Is.
type InvalidQueryError struct {
	// Reason is ErrUnsupportedType or ErrUnsupportedInterface.
	Reason error

	// Detail names the offending type or interface, plus any suggestion.
	Detail string
}

// Error implements the error interface for InvalidQueryError.
func (e *InvalidQueryError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("invalid query: %v", e.Reason)
	}
	return fmt.Sprintf("invalid query: %v: %s", e.Reason, e.Detail)
}

// Unwrap returns the rejection reason.
func (e *InvalidQueryError) Unwrap() error { return e.Reason }

// UnitFailureError reports that a single data interface failed. It is
// surfaced only after every dispatched unit has completed, and aborts the
// whole fulfillment; no partial result is ever returned.
type UnitFailureError struct {
	// Interface is the name of the unit that failed.
	Interface string

	// Err is the captured failure.
	Err error
}

// Error implements the error interface for UnitFailureError.
func (e *UnitFailureError) Error() string {
	return fmt.Sprintf("interface %q failed: %v", e.Interface, e.Err)
}

// Unwrap returns the captured failure.
func (e *UnitFailureError) Unwrap() error { return e.Err }

// NoPivotColumnError indicates that the collected tables share no column
// usable as a reconciliation key. Columns carries every column name seen,
// for diagnosis without re-running the query.
type NoPivotColumnError struct {
	Columns []string
}

// Error implements the error interface for NoPivotColumnError.
func (e *NoPivotColumnError) Error() string {
	return fmt.Sprintf(
		"no pivot column shared by all tables (columns seen: %s)",
		strings.Join(e.Columns, ", "))
}

// AmbiguousPivotColumnError indicates that more than one column is shared
// by every table. A query must not yield more than one pivot, so
// reconciliation aborts naming both contenders.
type AmbiguousPivotColumnError struct {
	First  string
	Second string
}

// Error implements the error interface for AmbiguousPivotColumnError.
func (e *AmbiguousPivotColumnError) Error() string {
	return fmt.Sprintf(
		"ambiguous pivot column: both %q and %q are shared by all tables",
		e.First, e.Second)
}

// JoinCardinalityError indicates that neither combine strategy applied:
// the one-to-one join was invalid because of duplicate pivot values, and
// the append fallback produced duplicate full rows. The first condition
// only triggers the fallback internally; the error surfaces to the caller
// when the fallback's own uniqueness check fails too.
type JoinCardinalityError struct {
	// Pivot is the accepted pivot column.
	Pivot string

	// Detail describes which check failed.
	Detail string
}

// Error implements the error interface for JoinCardinalityError.
func (e *JoinCardinalityError) Error() string {
	return fmt.Sprintf("cannot combine tables on %q: %s", e.Pivot, e.Detail)
}
