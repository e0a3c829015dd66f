package stream

import (
	"context"

	"github.com/nlimpid/sqlstream/sqlerr"
)

// Iterator pulls rows from a Stream one at a time.
//
//	it := s.Iterator(ctx)
//	for it.HasNext() {
//	    row, err := it.Next()
//	    ...
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type Iterator[R any] struct {
	s   *Stream[R]
	ctx context.Context

	row    R
	has    bool
	peeked bool
	done   bool
	err    error
}

// HasNext reports whether Next will return a row. Repeated calls without
// Next read nothing more.
func (it *Iterator[R]) HasNext() bool {
	if it.peeked {
		return it.has
	}
	if it.done {
		return false
	}
	v, ok, err := it.s.readRow(it.ctx)
	it.peeked = true
	if err != nil {
		it.err, it.done = err, true
		return false
	}
	if !ok {
		it.done = true
	}
	it.row, it.has = v, ok
	return ok
}

// Next returns the next row, or sqlerr.ErrSequenceExhausted when there is none.
func (it *Iterator[R]) Next() (R, error) {
	var zero R
	if !it.HasNext() {
		if it.err != nil {
			return zero, it.err
		}
		return zero, sqlerr.ErrSequenceExhausted
	}
	v := it.row
	it.row, it.has, it.peeked = zero, false, false
	return v, nil
}

// Err returns the error that ended the iteration, if any.
func (it *Iterator[R]) Err() error { return it.err }
