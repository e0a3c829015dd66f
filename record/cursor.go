package record

import (
	"fmt"

	"github.com/nlimpid/sqlstream/sqlerr"
	"github.com/nlimpid/sqlstream/transport"
)

// Cursor exposes one physical row at a time. A stream creates one Cursor and
// calls Reset before every row; the Cursor and any value it hands out by
// reference are only valid until that next Reset.
//
// A row supports three access modes and a caller should stick to one per row:
//
//   - sequential: MoveNext, then CurrentName/CurrentType and FetchCurrentValue
//   - named: ValueOf, which drains the whole row once for O(1) repeatable lookups
//   - positional: NextValue and the Next* helpers, one column per call
//
// FetchCurrentValue may be repeated on the same position; the cached value is
// returned and the column is not decoded twice. Named access after sequential
// access keeps every value fetched so far, but fails with
// sqlerr.ErrCursorModeConflict when an earlier column was skipped without a
// fetch, since the physical cursor cannot rewind.
type Cursor struct {
	lower   transport.Cursor
	columns []transport.Column
	index   *NameIndex
	opts    Options

	pos       int
	values    []any
	fetched   []bool
	skipped   bool
	exhausted bool
	drained   bool
	gen       uint64
}

// NewCursor binds a cursor to lower. columns and index describe every row
// lower produces and are shared, read-only.
func NewCursor(lower transport.Cursor, columns []transport.Column, index *NameIndex, opts Options) *Cursor {
	n := len(columns)
	return &Cursor{
		lower:   lower,
		columns: columns,
		index:   index,
		opts:    opts,
		pos:     -1,
		values:  make([]any, n),
		fetched: make([]bool, n),
	}
}

// Reset positions the cursor before the first column of a new row.
func (c *Cursor) Reset() {
	c.pos = -1
	clear(c.values)
	clear(c.fetched)
	c.skipped, c.exhausted, c.drained = false, false, false
	c.gen++
}

// Columns returns the column metadata shared by every row.
func (c *Cursor) Columns() []transport.Column { return c.columns }

// NameIndex returns the name resolver shared by every row.
func (c *Cursor) NameIndex() *NameIndex { return c.index }

// Options returns the name-resolution options of the cursor.
func (c *Cursor) Options() Options { return c.opts }

// MoveNext advances to the next column. It returns false once the row is exhausted.
func (c *Cursor) MoveNext() (bool, error) {
	if c.pos >= 0 && c.pos < len(c.columns) && !c.fetched[c.pos] {
		c.skipped = true
	}
	if c.exhausted {
		return false, nil
	}
	ok, err := c.lower.NextColumn()
	if err != nil {
		return false, err
	}
	if !ok {
		c.exhausted = true
		c.pos = len(c.columns)
		return false, nil
	}
	c.pos++
	if c.pos >= len(c.columns) {
		return false, fmt.Errorf("failed to move to column %d: metadata declares %d columns", c.pos, len(c.columns))
	}
	return true, nil
}

// CurrentColumn returns the column under the cursor.
func (c *Cursor) CurrentColumn() (transport.Column, error) {
	if c.pos < 0 || c.pos >= len(c.columns) {
		return transport.Column{}, &sqlerr.NoSuchColumnError{Index: c.pos, Count: len(c.columns)}
	}
	return c.columns[c.pos], nil
}

// CurrentName returns the name of the column under the cursor, or "" when
// the cursor is not on a column.
func (c *Cursor) CurrentName() string {
	col, err := c.CurrentColumn()
	if err != nil {
		return ""
	}
	return col.Name
}

// CurrentType returns the atom type of the column under the cursor, or
// AtomUnknown when the cursor is not on a column.
func (c *Cursor) CurrentType() transport.AtomType {
	col, err := c.CurrentColumn()
	if err != nil {
		return transport.AtomUnknown
	}
	return col.Type
}

// FetchCurrentValue decodes the column under the cursor. NULL yields nil.
func (c *Cursor) FetchCurrentValue() (any, error) {
	col, err := c.CurrentColumn()
	if err != nil {
		return nil, err
	}
	if c.fetched[c.pos] {
		return c.values[c.pos], nil
	}
	v, err := c.decode(col)
	if err != nil {
		return nil, err
	}
	c.values[c.pos] = v
	c.fetched[c.pos] = true
	return v, nil
}

// NextValue moves exactly one column forward and decodes it.
func (c *Cursor) NextValue() (any, error) {
	ok, err := c.MoveNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &sqlerr.NoSuchColumnError{Index: len(c.columns), Count: len(c.columns)}
	}
	return c.FetchCurrentValue()
}

// ValueOf returns the value of the column called name. The first call on a
// row drains the rest of the row.
func (c *Cursor) ValueOf(name string, opts ...ResolveOption) (any, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	i, err := resolve(c.index, c.opts.DefaultPolicy, name, opts)
	if err != nil {
		return nil, err
	}
	return c.values[i], nil
}

// ValueAt returns the value at column index i, draining the row first.
func (c *Cursor) ValueAt(i int) (any, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(c.values) {
		return nil, &sqlerr.NoSuchColumnError{Index: i, Count: len(c.values)}
	}
	return c.values[i], nil
}

// Entity drains the row into a snapshot that stays valid after the cursor moves on.
func (c *Cursor) Entity() (*Entity, error) {
	if err := c.drain(); err != nil {
		return nil, err
	}
	return NewEntity(append([]any(nil), c.values...), c.index, c.opts), nil
}

func (c *Cursor) drain() error {
	if c.drained {
		return nil
	}
	if c.skipped {
		return sqlerr.ErrCursorModeConflict
	}
	if c.pos >= 0 && c.pos < len(c.columns) && !c.fetched[c.pos] {
		if _, err := c.FetchCurrentValue(); err != nil {
			return err
		}
	}
	for {
		ok, err := c.MoveNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if _, err := c.FetchCurrentValue(); err != nil {
			return err
		}
	}
	c.drained = true
	return nil
}

// Lease captures the row the cursor is on.
func (c *Cursor) Lease() Lease { return Lease{c: c, gen: c.gen} }

// Lease detects a row view used after the cursor moved to another row.
type Lease struct {
	c   *Cursor
	gen uint64
}

// Valid reports whether the cursor is still on the leased row.
func (l Lease) Valid() bool { return l.c != nil && l.c.gen == l.gen }

// Check returns sqlerr.ErrStaleRow once the leased row is gone.
func (l Lease) Check() error {
	if !l.Valid() {
		return sqlerr.ErrStaleRow
	}
	return nil
}

func (c *Cursor) decode(col transport.Column) (any, error) {
	if c.lower.IsNull() {
		return nil, nil
	}
	var (
		v   any
		err error
	)
	switch col.Type {
	case transport.AtomBoolean:
		v, err = c.lower.FetchBoolean()
	case transport.AtomInt4:
		v, err = c.lower.FetchInt4()
	case transport.AtomInt8:
		v, err = c.lower.FetchInt8()
	case transport.AtomFloat4:
		v, err = c.lower.FetchFloat4()
	case transport.AtomFloat8:
		v, err = c.lower.FetchFloat8()
	case transport.AtomDecimal:
		v, err = c.lower.FetchDecimal()
	case transport.AtomCharacter:
		v, err = c.lower.FetchCharacter()
	case transport.AtomOctet:
		v, err = c.lower.FetchOctet()
	case transport.AtomBit:
		v, err = c.lower.FetchBit()
	case transport.AtomDate:
		v, err = c.lower.FetchDate()
	case transport.AtomTimeOfDay:
		v, err = c.lower.FetchTimeOfDay()
	case transport.AtomTimePoint:
		v, err = c.lower.FetchTimePoint()
	case transport.AtomInterval:
		v, err = c.lower.FetchInterval()
	default:
		return nil, &sqlerr.UnsupportedTypeError{Column: col.Name, Type: col.Type.String()}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch column %q: %w", col.Name, err)
	}
	return v, nil
}
