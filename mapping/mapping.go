// Package mapping converts the current row of a record.Cursor into a result
// value. A stream calls Convert once per row, after resetting the cursor.
package mapping

import (
	"github.com/nlimpid/sqlstream/convert"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/sqlerr"
)

// Mapping converts one row into R. Implementations shared across streams
// must be safe for concurrent use.
type Mapping[R any] interface {
	Convert(c *record.Cursor) (R, error)
}

// Func is a pass-through mapping: the user function reads the cursor itself.
type Func[R any] func(c *record.Cursor) (R, error)

func (f Func[R]) Convert(c *record.Cursor) (R, error) { return f(c) }

type entityMapping struct {
	opts *record.Options
}

func (m entityMapping) Convert(c *record.Cursor) (*record.Entity, error) {
	e, err := c.Entity()
	if err != nil || m.opts == nil {
		return e, err
	}
	return e.WithOptions(*m.opts), nil
}

// Default materializes every row into a record.Entity. Entities resolve
// names with the options of the cursor that produced them.
func Default() Mapping[*record.Entity] { return entityMapping{} }

// Entities materializes every row into a record.Entity resolving names with opts.
func Entities(opts record.Options) Mapping[*record.Entity] {
	return entityMapping{opts: &opts}
}

type single[T any] struct {
	dec convert.Func[T]
}

// Single decodes exactly the first column of each row with dec. A NULL value
// yields the zero value of T.
func Single[T any](dec convert.Func[T]) Mapping[T] {
	return single[T]{dec: dec}
}

func (s single[T]) Convert(c *record.Cursor) (T, error) {
	var zero T
	ok, err := c.MoveNext()
	if err != nil {
		return zero, err
	}
	if !ok {
		return zero, &sqlerr.NoSuchColumnError{Index: 0, Count: len(c.Columns())}
	}
	v, err := c.FetchCurrentValue()
	if err != nil {
		return zero, err
	}
	t, _, err := s.dec(v)
	return t, err
}
