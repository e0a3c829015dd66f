// Package sqlrows adapts database/sql results into transport cursors and a
// database/sql connection or transaction into a txn.Session.
package sqlrows

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"
	"github.com/shopspring/decimal"

	"github.com/nlimpid/sqlstream/transport"
)

// Querier is implemented by *sql.DB, *sql.Tx, *sql.Conn, and any wrapper
// that can execute a query returning rows.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// FromRows wraps rows as a transport.Cursor. The cursor owns rows.
func FromRows(rows *sql.Rows) transport.Cursor {
	return transport.FromRows(&source{rows: rows})
}

type source struct {
	rows    *sql.Rows
	columns []transport.Column
	row     []any
	ptrs    []any
}

func (s *source) Columns() ([]transport.Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	cts, err := s.rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	cols := make([]transport.Column, len(cts))
	for i, ct := range cts {
		cols[i] = transport.NewColumn(i, ct.Name(), AtomOf(ct.DatabaseTypeName()))
	}
	s.columns = cols
	return cols, nil
}

func (s *source) Next(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s.rows.Next() {
		return true, nil
	}
	if err := s.rows.Err(); err != nil {
		return false, fmt.Errorf("rows iteration error: %w", err)
	}
	return false, nil
}

func (s *source) Values() ([]any, error) {
	cols, err := s.Columns()
	if err != nil {
		return nil, err
	}
	if s.row == nil {
		s.row = make([]any, len(cols))
		s.ptrs = make([]any, len(cols))
	}
	for i := range s.row {
		s.row[i] = nil
		s.ptrs[i] = &s.row[i]
	}
	if err := s.rows.Scan(s.ptrs...); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	out := make([]any, len(s.row))
	for i, v := range s.row {
		out[i] = Normalize(v)
	}
	return out, nil
}

func (s *source) Close() error {
	return s.rows.Close()
}

// AtomOf maps a driver type name, as reported by sql.ColumnType, to an atom type.
func AtomOf(dbType string) transport.AtomType {
	t := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch t {
	case "BOOLEAN", "BOOL", "LOGICAL":
		return transport.AtomBoolean
	case "TINYINT", "SMALLINT", "INTEGER", "INT", "INT1", "INT2", "INT4", "UTINYINT", "USMALLINT":
		return transport.AtomInt4
	case "BIGINT", "INT8", "LONG", "UINTEGER":
		return transport.AtomInt8
	case "REAL", "FLOAT", "FLOAT4":
		return transport.AtomFloat4
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT8":
		return transport.AtomFloat8
	case "DECIMAL", "NUMERIC", "HUGEINT", "UBIGINT":
		return transport.AtomDecimal
	case "VARCHAR", "CHAR", "BPCHAR", "TEXT", "STRING", "NVARCHAR":
		return transport.AtomCharacter
	case "BLOB", "BYTEA", "BINARY", "VARBINARY":
		return transport.AtomOctet
	case "BIT", "BITSTRING", "VARBIT":
		return transport.AtomBit
	case "DATE":
		return transport.AtomDate
	case "TIME", "TIMETZ", "TIME WITH TIME ZONE":
		return transport.AtomTimeOfDay
	case "TIMESTAMP", "DATETIME", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS":
		return transport.AtomTimePoint
	case "INTERVAL":
		return transport.AtomInterval
	}
	return transport.AtomUnknown
}

// Normalize converts a value scanned by database/sql into the set accepted by
// transport.RowSource.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, []byte, time.Time:
		return x
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x > math.MaxInt64 {
			return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0)
		}
		return int64(x)
	case float32:
		return float64(x)
	case *big.Int:
		return decimal.NewFromBigInt(x, 0)
	case duckdb.Decimal:
		return decimal.NewFromBigInt(x.Value, -int32(x.Scale))
	case duckdb.Interval:
		return transport.Interval{Months: x.Months, Days: x.Days, Nanos: x.Micros * int64(time.Microsecond)}
	}
	return v
}
