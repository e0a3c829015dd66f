// Package pgxrows adapts pgx/v5 results into transport cursors and a pgx
// transaction into a txn.Session.
package pgxrows

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/nlimpid/sqlstream/transport"
)

// FromRows wraps rows as a transport.Cursor. The cursor owns rows.
func FromRows(rows pgx.Rows) transport.Cursor {
	return transport.FromRows(&source{rows: rows})
}

type source struct {
	rows    pgx.Rows
	columns []transport.Column
}

func (s *source) Columns() ([]transport.Column, error) {
	if s.columns != nil {
		return s.columns, nil
	}
	s.columns = Columns(s.rows.FieldDescriptions())
	return s.columns, nil
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
	vals, err := s.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read row values: %w", err)
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		n, err := Normalize(v)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize column %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

func (s *source) Close() error {
	s.rows.Close()
	return s.rows.Err()
}

// Columns builds column metadata from pgx field descriptions.
func Columns(fields []pgconn.FieldDescription) []transport.Column {
	cols := make([]transport.Column, len(fields))
	for i, f := range fields {
		cols[i] = transport.NewColumn(i, f.Name, AtomOf(f.DataTypeOID))
	}
	return cols
}

// AtomOf maps a PostgreSQL type OID to an atom type.
func AtomOf(oid uint32) transport.AtomType {
	switch oid {
	case pgtype.BoolOID:
		return transport.AtomBoolean
	case pgtype.Int2OID, pgtype.Int4OID:
		return transport.AtomInt4
	case pgtype.Int8OID:
		return transport.AtomInt8
	case pgtype.Float4OID:
		return transport.AtomFloat4
	case pgtype.Float8OID:
		return transport.AtomFloat8
	case pgtype.NumericOID:
		return transport.AtomDecimal
	case pgtype.TextOID, pgtype.VarcharOID, pgtype.BPCharOID, pgtype.NameOID:
		return transport.AtomCharacter
	case pgtype.ByteaOID:
		return transport.AtomOctet
	case pgtype.BitOID, pgtype.VarbitOID:
		return transport.AtomBit
	case pgtype.DateOID:
		return transport.AtomDate
	case pgtype.TimeOID:
		return transport.AtomTimeOfDay
	case pgtype.TimestampOID, pgtype.TimestamptzOID:
		return transport.AtomTimePoint
	case pgtype.IntervalOID:
		return transport.AtomInterval
	}
	return transport.AtomUnknown
}

// Normalize converts a value decoded by pgx into the set accepted by
// transport.RowSource.
func Normalize(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string, []byte, time.Time:
		return x, nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case float32:
		return float64(x), nil
	case pgtype.Numeric:
		if !x.Valid {
			return nil, nil
		}
		if x.NaN || x.InfinityModifier != pgtype.Finite {
			return nil, fmt.Errorf("numeric value is not finite")
		}
		return decimal.NewFromBigInt(x.Int, x.Exp), nil
	case pgtype.Time:
		if !x.Valid {
			return nil, nil
		}
		d := time.Duration(x.Microseconds) * time.Microsecond
		return time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC).Add(d), nil
	case pgtype.Interval:
		if !x.Valid {
			return nil, nil
		}
		return transport.Interval{Months: x.Months, Days: x.Days, Nanos: x.Microseconds * int64(time.Microsecond)}, nil
	case pgtype.Bits:
		if !x.Valid {
			return nil, nil
		}
		bits := make(transport.Bits, x.Len)
		for i := range bits {
			bits[i] = x.Bytes[i/8]&(0x80>>(uint(i)%8)) != 0
		}
		return bits, nil
	}
	return v, nil
}
