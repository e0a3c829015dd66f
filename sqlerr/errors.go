// Package sqlerr defines the error kinds surfaced by the result layer.
//
// Callers distinguish three families with errors.As / errors.Is:
//
//   - bad requests that need a code fix: ColumnNotFoundError, AmbiguousColumnError,
//     NoSuchColumnError, NullValueError, ErrCursorModeConflict, ErrStaleRow
//   - server or transport failures: TransactionScopedError, UnsupportedTypeError
//   - misuse of the iteration protocol: ErrSequenceExhausted, ErrResourceReleased
package sqlerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSequenceExhausted is returned by Iterator.Next when no row is available.
	ErrSequenceExhausted = errors.New("sqlstream: no more rows in sequence")

	// ErrResourceReleased is returned by row-level operations after Close.
	ErrResourceReleased = errors.New("sqlstream: resource already released")

	// ErrCursorModeConflict is returned when named access is requested on a row whose
	// columns were already skipped in sequential mode.
	ErrCursorModeConflict = errors.New("sqlstream: named access after sequential skip on the same row")

	// ErrStaleRow reports use of a row view after the cursor moved to another row.
	ErrStaleRow = errors.New("sqlstream: row view used after the cursor advanced")

	// ErrUpdateCountUnknown is returned by UpdateCount: row counts for non-query
	// statements are not reported by this layer.
	ErrUpdateCountUnknown = errors.New("sqlstream: update count is not supported")
)

// ColumnNotFoundError reports an unknown column name, or a sub-index past the
// number of columns sharing that name.
type ColumnNotFoundError struct {
	Name     string
	SubIndex int // -1 when the lookup was not by sub-index
}

func (e *ColumnNotFoundError) Error() string {
	if e.SubIndex >= 0 {
		return fmt.Sprintf("sqlstream: column %q not found (subIndex=%d)", e.Name, e.SubIndex)
	}
	return fmt.Sprintf("sqlstream: column %q not found", e.Name)
}

// AmbiguousColumnError reports a duplicated column name resolved under PolicyError.
type AmbiguousColumnError struct {
	Name    string
	Indices []int
}

func (e *AmbiguousColumnError) Error() string {
	return fmt.Sprintf("sqlstream: column %q is ambiguous (indices %v)", e.Name, e.Indices)
}

// NoSuchColumnError reports a positional access outside the row.
type NoSuchColumnError struct {
	Index int
	Count int
}

func (e *NoSuchColumnError) Error() string {
	return fmt.Sprintf("sqlstream: no column at position %d (row has %d columns)", e.Index, e.Count)
}

// NullValueError is returned by non-optional getters when the column is NULL.
type NullValueError struct {
	Column string
}

func (e *NullValueError) Error() string {
	return fmt.Sprintf("sqlstream: column %q is null", e.Column)
}

// UnsupportedTypeError reports an atom type outside the decodable set. It means
// client and server disagree on the protocol version and is never retryable.
type UnsupportedTypeError struct {
	Column string
	Type   string
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("sqlstream: unsupported atom type %s for column %q", e.Type, e.Column)
}

// Scope is the diagnostic context attached to transport failures.
type Scope struct {
	Transaction string
	Statement   string
	Params      []any
	Handle      string
}

// TransactionScopedError wraps a transport or server failure with the context
// it happened in. This layer never retries it.
type TransactionScopedError struct {
	Scope
	Op  string
	Err error
}

func (e *TransactionScopedError) Error() string {
	var sb strings.Builder
	sb.WriteString("sqlstream: failed to ")
	sb.WriteString(e.Op)
	if e.Transaction != "" {
		sb.WriteString(" (tx=")
		sb.WriteString(e.Transaction)
		sb.WriteString(")")
	}
	if e.Statement != "" {
		fmt.Fprintf(&sb, " sql=%q", e.Statement)
	}
	if len(e.Params) > 0 {
		fmt.Fprintf(&sb, " params=%v", e.Params)
	}
	if e.Handle != "" {
		sb.WriteString(" handle=")
		sb.WriteString(e.Handle)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *TransactionScopedError) Unwrap() error { return e.Err }

// Wrap attaches scope to err. Errors that are already scoped, and errors that
// belong to the request families (column lookup, iteration protocol), are
// returned unchanged.
func Wrap(scope Scope, op string, err error) error {
	if err == nil {
		return nil
	}
	var scoped *TransactionScopedError
	if errors.As(err, &scoped) {
		return err
	}
	if isLocal(err) {
		return err
	}
	return &TransactionScopedError{Scope: scope, Op: op, Err: err}
}

func isLocal(err error) bool {
	var (
		notFound  *ColumnNotFoundError
		ambiguous *AmbiguousColumnError
		noSuch    *NoSuchColumnError
		null      *NullValueError
		closeErr  *CloseError
	)
	switch {
	case errors.As(err, &notFound), errors.As(err, &ambiguous),
		errors.As(err, &noSuch), errors.As(err, &null), errors.As(err, &closeErr):
		return true
	case errors.Is(err, ErrSequenceExhausted), errors.Is(err, ErrResourceReleased),
		errors.Is(err, ErrCursorModeConflict), errors.Is(err, ErrStaleRow):
		return true
	}
	return false
}
