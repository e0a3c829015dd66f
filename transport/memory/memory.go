// Package memory provides an in-memory transport.Cursor. It records every
// physical call so tests can assert how a cursor was consumed.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/nlimpid/sqlstream/transport"
)

// Stats counts the calls made on a Cursor.
type Stats struct {
	NextRow    int
	NextColumn int
	Fetch      int
	Close      int
}

// Cursor serves fixed rows. Row values must be nil or of the Go type expected
// by the column's atom type (int4 accepts any integer).
type Cursor struct {
	columns []transport.Column
	rows    [][]any

	row, col int
	fetched  bool

	// ColumnsErr fails Columns.
	ColumnsErr error
	// FailRow makes NextRow fail with RowErr when it would move to that row (0-based).
	FailRow int
	RowErr  error
	// CloseErr is returned by every Close.
	CloseErr error
	// StrictFetch fails a second fetch of the same column.
	StrictFetch bool

	Stats Stats
}

// New builds a Cursor over rows.
func New(columns []transport.Column, rows ...[]any) *Cursor {
	return &Cursor{columns: columns, rows: rows, row: -1, col: -1, FailRow: -1}
}

// Columns is a convenience for building column metadata in order.
func Columns(pairs ...any) []transport.Column {
	if len(pairs)%2 != 0 {
		panic("memory: Columns wants name/type pairs")
	}
	cols := make([]transport.Column, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		cols = append(cols, transport.NewColumn(i/2, pairs[i].(string), pairs[i+1].(transport.AtomType)))
	}
	return cols
}

func (c *Cursor) Columns() ([]transport.Column, error) {
	if c.ColumnsErr != nil {
		return nil, c.ColumnsErr
	}
	return c.columns, nil
}

func (c *Cursor) NextRow(ctx context.Context) (bool, error) {
	c.Stats.NextRow++
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if c.row+1 == c.FailRow && c.RowErr != nil {
		return false, c.RowErr
	}
	c.col, c.fetched = -1, false
	if c.row+1 >= len(c.rows) {
		c.row = len(c.rows)
		return false, nil
	}
	c.row++
	return true, nil
}

func (c *Cursor) NextColumn() (bool, error) {
	c.Stats.NextColumn++
	if c.row < 0 || c.row >= len(c.rows) {
		return false, nil
	}
	if c.col+1 >= len(c.rows[c.row]) {
		c.col = len(c.rows[c.row])
		return false, nil
	}
	c.col++
	c.fetched = false
	return true, nil
}

func (c *Cursor) IsNull() bool {
	v, err := c.value()
	return err == nil && v == nil
}

func (c *Cursor) value() (any, error) {
	if c.row < 0 || c.row >= len(c.rows) || c.col < 0 || c.col >= len(c.rows[c.row]) {
		return nil, errors.New("memory: cursor is not positioned on a column")
	}
	return c.rows[c.row][c.col], nil
}

func (c *Cursor) take() (any, error) {
	c.Stats.Fetch++
	if c.StrictFetch && c.fetched {
		return nil, fmt.Errorf("memory: column %d fetched twice", c.col)
	}
	v, err := c.value()
	if err != nil {
		return nil, err
	}
	c.fetched = true
	return v, nil
}

func fetch[T any](c *Cursor) (T, error) {
	var zero T
	v, err := c.take()
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("memory: column %d holds %T, want %T", c.col, v, zero)
	}
	return t, nil
}

func (c *Cursor) FetchBoolean() (bool, error) { return fetch[bool](c) }

func (c *Cursor) FetchInt4() (int32, error) {
	v, err := c.take()
	if err != nil {
		return 0, err
	}
	return cast.ToInt32E(v)
}

func (c *Cursor) FetchInt8() (int64, error) {
	v, err := c.take()
	if err != nil {
		return 0, err
	}
	return cast.ToInt64E(v)
}

func (c *Cursor) FetchFloat4() (float32, error) { return fetch[float32](c) }
func (c *Cursor) FetchFloat8() (float64, error) { return fetch[float64](c) }
func (c *Cursor) FetchDecimal() (decimal.Decimal, error) { return fetch[decimal.Decimal](c) }
func (c *Cursor) FetchCharacter() (string, error) { return fetch[string](c) }
func (c *Cursor) FetchOctet() ([]byte, error) { return fetch[[]byte](c) }
func (c *Cursor) FetchBit() (transport.Bits, error) { return fetch[transport.Bits](c) }
func (c *Cursor) FetchDate() (time.Time, error) { return fetch[time.Time](c) }
func (c *Cursor) FetchTimeOfDay() (time.Time, error) { return fetch[time.Time](c) }
func (c *Cursor) FetchTimePoint() (time.Time, error) { return fetch[time.Time](c) }
func (c *Cursor) FetchInterval() (transport.Interval, error) { return fetch[transport.Interval](c) }

func (c *Cursor) Close() error {
	c.Stats.Close++
	return c.CloseErr
}

// Closed reports whether Close was called at least once.
func (c *Cursor) Closed() bool { return c.Stats.Close > 0 }
