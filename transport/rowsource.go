package transport

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// RowSource is a row-at-a-time result, such as database/sql or pgx rows. Next
// reads the following row; Values returns that row with every entry already
// normalized to one of: nil, bool, int64, float64, decimal.Decimal, string,
// []byte, Bits, time.Time or Interval.
type RowSource interface {
	Columns() ([]Column, error)
	Next(ctx context.Context) (bool, error)
	Values() ([]any, error)
	Close() error
}

// FromRows adapts a RowSource into a column-at-a-time Cursor.
func FromRows(src RowSource) Cursor {
	return &rowCursor{src: src, pos: -1}
}

type rowCursor struct {
	src     RowSource
	columns []Column
	row     []any
	pos     int
}

func (c *rowCursor) Columns() ([]Column, error) {
	if c.columns != nil {
		return c.columns, nil
	}
	cols, err := c.src.Columns()
	if err != nil {
		return nil, err
	}
	c.columns = cols
	return cols, nil
}

func (c *rowCursor) NextRow(ctx context.Context) (bool, error) {
	c.row, c.pos = nil, -1
	ok, err := c.src.Next(ctx)
	if err != nil || !ok {
		return false, err
	}
	row, err := c.src.Values()
	if err != nil {
		return false, fmt.Errorf("failed to read row: %w", err)
	}
	c.row = row
	return true, nil
}

func (c *rowCursor) NextColumn() (bool, error) {
	if c.row == nil {
		return false, nil
	}
	if c.pos+1 >= len(c.row) {
		c.pos = len(c.row)
		return false, nil
	}
	c.pos++
	return true, nil
}

func (c *rowCursor) IsNull() bool {
	v, err := c.current()
	return err == nil && v == nil
}

func (c *rowCursor) current() (any, error) {
	if c.row == nil || c.pos < 0 || c.pos >= len(c.row) {
		return nil, fmt.Errorf("transport: cursor is not positioned on a column")
	}
	return c.row[c.pos], nil
}

func (c *rowCursor) FetchBoolean() (bool, error) {
	v, err := c.current()
	if err != nil {
		return false, err
	}
	return cast.ToBoolE(v)
}

func (c *rowCursor) FetchInt4() (int32, error) {
	v, err := c.current()
	if err != nil {
		return 0, err
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("unable to cast %#v of type %T to int32", v, v)
	}
	return int32(n), nil
}

func (c *rowCursor) FetchInt8() (int64, error) {
	v, err := c.current()
	if err != nil {
		return 0, err
	}
	return cast.ToInt64E(v)
}

func (c *rowCursor) FetchFloat4() (float32, error) {
	v, err := c.current()
	if err != nil {
		return 0, err
	}
	return cast.ToFloat32E(v)
}

func (c *rowCursor) FetchFloat8() (float64, error) {
	v, err := c.current()
	if err != nil {
		return 0, err
	}
	return cast.ToFloat64E(v)
}

func (c *rowCursor) FetchDecimal() (decimal.Decimal, error) {
	v, err := c.current()
	if err != nil {
		return decimal.Zero, err
	}
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case string:
		return decimal.NewFromString(d)
	case int64:
		return decimal.NewFromInt(d), nil
	case float64:
		return decimal.NewFromFloat(d), nil
	}
	return decimal.Zero, fmt.Errorf("transport: cannot read %T as decimal", v)
}

func (c *rowCursor) FetchCharacter() (string, error) {
	v, err := c.current()
	if err != nil {
		return "", err
	}
	if b, ok := v.([]byte); ok {
		return string(b), nil
	}
	return cast.ToStringE(v)
}

func (c *rowCursor) FetchOctet() ([]byte, error) {
	v, err := c.current()
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, fmt.Errorf("transport: cannot read %T as octet", v)
}

func (c *rowCursor) FetchBit() (Bits, error) {
	v, err := c.current()
	if err != nil {
		return nil, err
	}
	switch b := v.(type) {
	case Bits:
		return b, nil
	case string:
		if bits, ok := ParseBits(b); ok {
			return bits, nil
		}
	}
	return nil, fmt.Errorf("transport: cannot read %T as bit", v)
}

func (c *rowCursor) fetchTime(kind string) (time.Time, error) {
	v, err := c.current()
	if err != nil {
		return time.Time{}, err
	}
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	t, err := cast.ToTimeE(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("transport: cannot read %T as %s: %w", v, kind, err)
	}
	return t, nil
}

func (c *rowCursor) FetchDate() (time.Time, error) {
	t, err := c.fetchTime("date")
	if err != nil {
		return t, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func (c *rowCursor) FetchTimeOfDay() (time.Time, error) {
	t, err := c.fetchTime("time of day")
	if err != nil {
		return t, err
	}
	return TimeOfDay(t), nil
}

func (c *rowCursor) FetchTimePoint() (time.Time, error) {
	return c.fetchTime("time point")
}

func (c *rowCursor) FetchInterval() (Interval, error) {
	v, err := c.current()
	if err != nil {
		return Interval{}, err
	}
	switch iv := v.(type) {
	case Interval:
		return iv, nil
	case time.Duration:
		return Interval{Nanos: int64(iv)}, nil
	}
	return Interval{}, fmt.Errorf("transport: cannot read %T as interval", v)
}

func (c *rowCursor) Close() error {
	return c.src.Close()
}

// TimeOfDay strips the date from t, keeping the clock reading and zone offset.
func TimeOfDay(t time.Time) time.Time {
	return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
