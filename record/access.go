package record

import (
	"fmt"
	"strconv"

	"github.com/nlimpid/sqlstream/convert"
	"github.com/nlimpid/sqlstream/sqlerr"
)

// Named is a row readable by column name: a Cursor or an Entity.
type Named interface {
	ValueOf(name string, opts ...ResolveOption) (any, error)
}

// Indexed is a row readable by column index: a Cursor or an Entity.
type Indexed interface {
	ValueAt(i int) (any, error)
}

// Positional is a row read one column at a time.
type Positional interface {
	NextValue() (any, error)
	CurrentName() string
}

var (
	_ Named      = (*Cursor)(nil)
	_ Named      = (*Entity)(nil)
	_ Indexed    = (*Cursor)(nil)
	_ Indexed    = (*Entity)(nil)
	_ Positional = (*Cursor)(nil)
)

// Every getter below is one of four shapes over a convert.Func:
//
//	X     fails with NullValueError on NULL
//	XOr   returns def on NULL
//	FindX returns ok=false on NULL
//	XOrNil returns a nil pointer on NULL

func as[T any](v any, err error, column string, f convert.Func[T]) (T, bool, error) {
	var zero T
	if err != nil {
		return zero, false, err
	}
	t, ok, err := f(v)
	if err != nil {
		return zero, false, fmt.Errorf("failed to convert column %q: %w", column, err)
	}
	return t, ok, nil
}

func required[T any](t T, ok bool, err error, column string) (T, error) {
	if err != nil {
		return t, err
	}
	if !ok {
		return t, &sqlerr.NullValueError{Column: column}
	}
	return t, nil
}

func orDefault[T any](t T, ok bool, err error, def T) (T, error) {
	if err != nil {
		return t, err
	}
	if !ok {
		return def, nil
	}
	return t, nil
}

func orNil[T any](t T, ok bool, err error) (*T, error) {
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func next[T any](r Positional, f convert.Func[T]) (T, bool, string, error) {
	v, err := r.NextValue()
	name := r.CurrentName()
	t, ok, err := as(v, err, name, f)
	return t, ok, name, err
}

// Next decodes the next column as T.
func Next[T any](r Positional, f convert.Func[T]) (T, error) {
	t, ok, name, err := next(r, f)
	return required(t, ok, err, name)
}

// NextOr decodes the next column as T, or returns def when it is NULL.
func NextOr[T any](r Positional, f convert.Func[T], def T) (T, error) {
	t, ok, _, err := next(r, f)
	return orDefault(t, ok, err, def)
}

// FindNext decodes the next column as T; ok is false when it is NULL.
func FindNext[T any](r Positional, f convert.Func[T]) (T, bool, error) {
	t, ok, _, err := next(r, f)
	return t, ok, err
}

// NextOrNil decodes the next column as *T, nil when it is NULL.
func NextOrNil[T any](r Positional, f convert.Func[T]) (*T, error) {
	t, ok, _, err := next(r, f)
	return orNil(t, ok, err)
}

func named[T any](r Named, f convert.Func[T], name string, opts []ResolveOption) (T, bool, error) {
	v, err := r.ValueOf(name, opts...)
	return as(v, err, name, f)
}

// Get decodes the column called name as T.
func Get[T any](r Named, f convert.Func[T], name string, opts ...ResolveOption) (T, error) {
	t, ok, err := named(r, f, name, opts)
	return required(t, ok, err, name)
}

// GetOr decodes the column called name as T, or returns def when it is NULL.
func GetOr[T any](r Named, f convert.Func[T], name string, def T, opts ...ResolveOption) (T, error) {
	t, ok, err := named(r, f, name, opts)
	return orDefault(t, ok, err, def)
}

// Find decodes the column called name as T; ok is false when it is NULL.
func Find[T any](r Named, f convert.Func[T], name string, opts ...ResolveOption) (T, bool, error) {
	return named(r, f, name, opts)
}

// GetOrNil decodes the column called name as *T, nil when it is NULL.
func GetOrNil[T any](r Named, f convert.Func[T], name string, opts ...ResolveOption) (*T, error) {
	t, ok, err := named(r, f, name, opts)
	return orNil(t, ok, err)
}

func indexed[T any](r Indexed, f convert.Func[T], i int) (T, bool, string, error) {
	v, err := r.ValueAt(i)
	label := "#" + strconv.Itoa(i)
	t, ok, err := as(v, err, label, f)
	return t, ok, label, err
}

// GetAt decodes column i as T.
func GetAt[T any](r Indexed, f convert.Func[T], i int) (T, error) {
	t, ok, label, err := indexed(r, f, i)
	return required(t, ok, err, label)
}

// GetAtOr decodes column i as T, or returns def when it is NULL.
func GetAtOr[T any](r Indexed, f convert.Func[T], i int, def T) (T, error) {
	t, ok, _, err := indexed(r, f, i)
	return orDefault(t, ok, err, def)
}

// FindAt decodes column i as T; ok is false when it is NULL.
func FindAt[T any](r Indexed, f convert.Func[T], i int) (T, bool, error) {
	t, ok, _, err := indexed(r, f, i)
	return t, ok, err
}

// GetAtOrNil decodes column i as *T, nil when it is NULL.
func GetAtOrNil[T any](r Indexed, f convert.Func[T], i int) (*T, error) {
	t, ok, _, err := indexed(r, f, i)
	return orNil(t, ok, err)
}
