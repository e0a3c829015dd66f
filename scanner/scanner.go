package scanner

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nlimpid/sqlstream/convert"
	"github.com/nlimpid/sqlstream/mapping"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/stream"
	"github.com/nlimpid/sqlstream/transport"
	"github.com/nlimpid/sqlstream/transport/sqlrows"
	"github.com/nlimpid/sqlstream/txn"
)

// Scanner describes a type that knows how to turn a set of column names into
// destinations for the decoded column values. See ScanTargets for the
// detailed contract.
type Scanner interface {
	// ScanTargets returns one pointer per column, in column order. A nil
	// entry leaves that column undecoded.
	ScanTargets(columns []string) []any
}

// Ptr is a generic type constraint requiring a pointer to T that also implements
// Scanner. It lets Mapping and friends control the creation of new values
// while still letting the user provide custom ScanTargets logic.
type Ptr[T any] interface {
	*T
	Scanner
}

// QueryOption configures query behavior.
type QueryOption func(*queryConfig)

type queryConfig struct {
	expectedSize int
	streamOpts   []stream.Option
}

// WithExpectedSize pre-allocates slice capacity for better performance. It is
// primarily used with ScanStructs and QueryStructs when you know the expected
// number of rows ahead of time.
func WithExpectedSize(size int) QueryOption {
	return func(c *queryConfig) {
		c.expectedSize = size
	}
}

// WithStreamOptions passes opts to the stream that reads the rows.
func WithStreamOptions(opts ...stream.Option) QueryOption {
	return func(c *queryConfig) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

func newQueryConfig(opts []QueryOption) *queryConfig {
	cfg := &queryConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *queryConfig) options() []stream.Option {
	return append(append([]stream.Option(nil), c.streamOpts...), stream.WithExpectedSize(c.expectedSize))
}

type structMapping[T any, P Ptr[T]] struct{}

// Mapping returns a row mapping that builds a new T per row and stores each
// column into the target returned by ScanTargets.
func Mapping[T any, P Ptr[T]]() mapping.Mapping[*T] {
	return structMapping[T, P]{}
}

func (structMapping[T, P]) Convert(c *record.Cursor) (*T, error) {
	var result T
	targets := P(&result).ScanTargets(c.NameIndex().Names())
	for i := range c.Columns() {
		ok, err := c.MoveNext()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if i >= len(targets) || targets[i] == nil {
			continue
		}
		v, err := c.FetchCurrentValue()
		if err != nil {
			return nil, err
		}
		if err := Assign(targets[i], v); err != nil {
			return nil, fmt.Errorf("failed to scan column %q: %w", c.CurrentName(), err)
		}
	}
	return &result, nil
}

// Assign stores a decoded column value into target. NULL leaves target
// unchanged, except for sql.Scanner targets which receive nil.
func Assign(target any, v any) error {
	if s, ok := target.(sql.Scanner); ok {
		return s.Scan(v)
	}
	switch t := target.(type) {
	case *any:
		*t = v
		return nil
	case *int64:
		return store(t, v, convert.Int64)
	case *int:
		return store(t, v, convert.Int)
	case *int32:
		return store(t, v, convert.Int32)
	case *bool:
		return store(t, v, convert.Bool)
	case *float64:
		return store(t, v, convert.Float64)
	case *float32:
		return store(t, v, convert.Float32)
	case *string:
		return store(t, v, convert.String)
	case *[]byte:
		return store(t, v, convert.Bytes)
	case *decimal.Decimal:
		return store(t, v, convert.Decimal)
	case *time.Time:
		return store(t, v, convert.OffsetDateTime)
	case *transport.Bits:
		return store(t, v, convert.Bits)
	case *transport.Interval:
		return store(t, v, convert.Interval)
	}
	return fmt.Errorf("unsupported scan target %T", target)
}

func store[T any](dst *T, v any, f convert.Func[T]) error {
	t, ok, err := f(v)
	if err != nil {
		return err
	}
	if ok {
		*dst = t
	}
	return nil
}

// ScanStruct reads the first row from rows and decodes it into a new struct
// value. It stops after the first row and returns sql.ErrNoRows when the result
// set is empty. rows is closed on return.
func ScanStruct[T any, P Ptr[T]](ctx context.Context, rows *sql.Rows, opts ...QueryOption) (*T, error) {
	cfg := newQueryConfig(opts)
	s := stream.New(transport.Resolved(sqlrows.FromRows(rows)), Mapping[T, P](), cfg.options()...)
	return first(ctx, s)
}

// ScanStructs consumes rows and returns one pointer per row in the order they
// are produced by the driver. Combine it with WithExpectedSize to avoid slice
// resizing during large iterations. rows is closed on return.
func ScanStructs[T any, P Ptr[T]](ctx context.Context, rows *sql.Rows, opts ...QueryOption) ([]*T, error) {
	cfg := newQueryConfig(opts)
	s := stream.New(transport.Resolved(sqlrows.FromRows(rows)), Mapping[T, P](), cfg.options()...)
	return all(ctx, s)
}

// QueryStruct runs query against q with the provided args, then returns the
// first row. It returns sql.ErrNoRows when the result set is empty.
func QueryStruct[T any, P Ptr[T]](ctx context.Context, q sqlrows.Querier, query string, args ...any) (*T, error) {
	tx := txn.Begin(sqlrows.NewSession(q))
	s, err := txn.Query(ctx, tx, Mapping[T, P](), query, args...)
	if err != nil {
		return nil, err
	}
	v, err := first(ctx, s)
	if cerr := tx.Commit(ctx); err == nil && cerr != nil {
		return nil, cerr
	}
	return v, err
}

// QueryStructs runs query against q with the supplied args slice, applying the
// given QueryOptions, and returns every row.
func QueryStructs[T any, P Ptr[T]](ctx context.Context, q sqlrows.Querier, query string, args []any, opts ...QueryOption) ([]*T, error) {
	cfg := newQueryConfig(opts)
	tx := txn.Begin(sqlrows.NewSession(q), txn.WithStreamOptions(cfg.options()...))
	s, err := txn.Query(ctx, tx, Mapping[T, P](), query, args...)
	if err != nil {
		return nil, err
	}
	v, err := all(ctx, s)
	if cerr := tx.Commit(ctx); err == nil && cerr != nil {
		return nil, cerr
	}
	return v, err
}

func first[T any](ctx context.Context, s *stream.Stream[*T]) (*T, error) {
	v, ok, err := s.ReadOne(ctx)
	if cerr := s.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, sql.ErrNoRows
	}
	return v, nil
}

func all[T any](ctx context.Context, s *stream.Stream[*T]) ([]*T, error) {
	v, err := s.ReadAll(ctx)
	if cerr := s.Close(ctx); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ScanMap creates a ScanTargets-compatible slice from a column-to-field map.
// Columns not present in fields get a nil target and are not decoded, so
// callers can ignore unexpected projections safely.
func ScanMap(columns []string, fields map[string]any) []any {
	targets := make([]any, len(columns))
	for i, col := range columns {
		if target, ok := fields[col]; ok {
			targets[i] = target
		}
	}
	return targets
}
