package transport

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cursor is the column-oriented physical result cursor owned by a session.
//
// NextRow moves to the next row and reports whether one exists. NextColumn
// moves to the next column of the current row. IsNull and the Fetch methods
// apply to the current column; each column may be fetched at most once. All
// methods may fail with a transport error.
type Cursor interface {
	Columns() ([]Column, error)
	NextRow(ctx context.Context) (bool, error)
	NextColumn() (bool, error)
	IsNull() bool

	FetchBoolean() (bool, error)
	FetchInt4() (int32, error)
	FetchInt8() (int64, error)
	FetchFloat4() (float32, error)
	FetchFloat8() (float64, error)
	FetchDecimal() (decimal.Decimal, error)
	FetchCharacter() (string, error)
	FetchOctet() ([]byte, error)
	FetchBit() (Bits, error)
	FetchDate() (time.Time, error)
	FetchTimeOfDay() (time.Time, error)
	FetchTimePoint() (time.Time, error)
	FetchInterval() (Interval, error)

	Close() error
}
