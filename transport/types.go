// Package transport defines the physical result cursor this module decodes
// rows from, together with the metadata and value types it produces.
//
// A Cursor is column-oriented: NextRow positions it on a row, NextColumn on a
// column of that row, and exactly one Fetch method matching the column's
// AtomType reads the value. Implementations live in the sub-packages
// (sqlrows, pgxrows, memory) or come from a driver session.
package transport

import (
	"strconv"
	"strings"
	"time"
)

// AtomType is the server-declared scalar type of a column.
type AtomType int

const (
	AtomUnknown AtomType = iota
	AtomBoolean
	AtomInt4
	AtomInt8
	AtomFloat4
	AtomFloat8
	AtomDecimal
	AtomCharacter
	AtomOctet
	AtomBit
	AtomDate
	AtomTimeOfDay
	AtomTimePoint
	AtomInterval
	// AtomClob and later types are declared by newer servers and cannot be decoded.
	AtomClob
	AtomBlob
)

var atomNames = [...]string{
	AtomUnknown:   "UNKNOWN",
	AtomBoolean:   "BOOLEAN",
	AtomInt4:      "INT4",
	AtomInt8:      "INT8",
	AtomFloat4:    "FLOAT4",
	AtomFloat8:    "FLOAT8",
	AtomDecimal:   "DECIMAL",
	AtomCharacter: "CHARACTER",
	AtomOctet:     "OCTET",
	AtomBit:       "BIT",
	AtomDate:      "DATE",
	AtomTimeOfDay: "TIME_OF_DAY",
	AtomTimePoint: "TIME_POINT",
	AtomInterval:  "DATETIME_INTERVAL",
	AtomClob:      "CLOB",
	AtomBlob:      "BLOB",
}

func (t AtomType) String() string {
	if t >= 0 && int(t) < len(atomNames) {
		return atomNames[t]
	}
	return "ATOM(" + strconv.Itoa(int(t)) + ")"
}

// Column describes one column of a result set. Columns are immutable and
// shared by every row of a stream.
type Column struct {
	Name  string
	Type  AtomType
	Index int
}

// SynthesizedName is the name given to a column the server left unnamed.
func SynthesizedName(index int) string {
	return "@#" + strconv.Itoa(index)
}

// NewColumn builds a Column, synthesizing the name when it is empty.
func NewColumn(index int, name string, typ AtomType) Column {
	if name == "" {
		name = SynthesizedName(index)
	}
	return Column{Name: name, Type: typ, Index: index}
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// Bits is the value of a BIT column, most significant bit first.
type Bits []bool

func (b Bits) String() string {
	var sb strings.Builder
	sb.Grow(len(b))
	for _, v := range b {
		if v {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// ParseBits parses a string of '0' and '1'.
func ParseBits(s string) (Bits, bool) {
	b := make(Bits, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
		case '1':
			b[i] = true
		default:
			return nil, false
		}
	}
	return b, true
}

// Interval is the value of a DATETIME_INTERVAL column.
type Interval struct {
	Months int32
	Days   int32
	Nanos  int64
}

func (iv Interval) String() string {
	return strconv.Itoa(int(iv.Months)) + " mons " + strconv.Itoa(int(iv.Days)) + " days " +
		time.Duration(iv.Nanos).String()
}
