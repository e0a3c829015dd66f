// Package convert coerces decoded column values into Go types.
//
// Every converter is a Func: it reports ok=false for nil and an error when the
// value cannot be represented in the target type. Numeric and string
// coercions go through github.com/spf13/cast.
package convert

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/nlimpid/sqlstream/transport"
)

// Func converts a decoded value into T. ok is false when v is nil.
type Func[T any] func(v any) (t T, ok bool, err error)

func lift[T any](to func(any) (T, error)) Func[T] {
	return func(v any) (T, bool, error) {
		var zero T
		if v == nil {
			return zero, false, nil
		}
		t, err := to(v)
		if err != nil {
			return zero, false, err
		}
		return t, true, nil
	}
}

var (
	Bool    Func[bool]    = lift(cast.ToBoolE)
	Int32   Func[int32]   = lift(toInt32)
	Int64   Func[int64]   = lift(toInt64)
	Int     Func[int]     = lift(toInt)
	Float32 Func[float32] = lift(cast.ToFloat32E)
	Float64 Func[float64] = lift(cast.ToFloat64E)
	String  Func[string]  = lift(toString)
	Bytes   Func[[]byte]  = lift(toBytes)

	Decimal  Func[decimal.Decimal]    = lift(toDecimal)
	Bits     Func[transport.Bits]     = lift(toBits)
	Interval Func[transport.Interval] = lift(toInterval)

	// Date keeps only the calendar date, in UTC.
	Date Func[time.Time] = lift(func(v any) (time.Time, error) {
		t, err := toTime(v)
		if err != nil {
			return t, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	})
	// Time keeps only the clock reading, without a zone.
	Time Func[time.Time] = lift(func(v any) (time.Time, error) {
		t, err := toTime(v)
		if err != nil {
			return t, err
		}
		return time.Date(0, time.January, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	})
	// DateTime is a local date-time: the wall clock with the zone dropped.
	DateTime Func[time.Time] = lift(func(v any) (time.Time, error) {
		t, err := toTime(v)
		if err != nil {
			return t, err
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
	})
	// OffsetTime is a time of day that keeps its zone offset.
	OffsetTime Func[time.Time] = lift(func(v any) (time.Time, error) {
		t, err := toTime(v)
		if err != nil {
			return t, err
		}
		return transport.TimeOfDay(t), nil
	})
	// OffsetDateTime is an instant that keeps its zone offset.
	OffsetDateTime Func[time.Time] = lift(toTime)

	// Any passes the decoded value through.
	Any Func[any] = func(v any) (any, bool, error) { return v, v != nil, nil }
)

// ZonedDateTime converts an instant into loc.
func ZonedDateTime(loc *time.Location) Func[time.Time] {
	return lift(func(v any) (time.Time, error) {
		t, err := toTime(v)
		if err != nil {
			return t, err
		}
		return t.In(loc), nil
	})
}

func toInt64(v any) (int64, error) {
	return toWhole(v, "int64", math.MinInt64, math.MaxInt64)
}

func toInt32(v any) (int32, error) {
	n, err := toWhole(v, "int32", math.MinInt32, math.MaxInt32)
	return int32(n), err
}

func toInt(v any) (int, error) {
	n, err := toWhole(v, "int", math.MinInt, math.MaxInt)
	return int(n), err
}

// toWhole parses v as an integer in [lo, hi]. Fractions and out-of-range
// values are errors, never truncated.
func toWhole(v any, target string, lo, hi int64) (int64, error) {
	fail := func() (int64, error) {
		return 0, fmt.Errorf("unable to cast %#v of type %T to %s", v, v, target)
	}
	var n int64
	switch x := v.(type) {
	case float32, float64:
		f := cast.ToFloat64(x)
		if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
			return fail()
		}
		n = int64(f)
	case decimal.Decimal:
		if !x.IsInteger() || x.LessThan(decimal.NewFromInt(math.MinInt64)) || x.GreaterThan(decimal.NewFromInt(math.MaxInt64)) {
			return fail()
		}
		n = x.IntPart()
	case *big.Int:
		if !x.IsInt64() {
			return fail()
		}
		n = x.Int64()
	case uint64:
		if x > math.MaxInt64 {
			return fail()
		}
		n = int64(x)
	case uint:
		if uint64(x) > math.MaxInt64 {
			return fail()
		}
		n = int64(x)
	default:
		var err error
		if n, err = cast.ToInt64E(v); err != nil {
			return 0, err
		}
	}
	if n < lo || n > hi {
		return fail()
	}
	return n, nil
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case []byte:
		return string(s), nil
	case decimal.Decimal:
		return s.String(), nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return cast.ToStringE(v)
}

func toBytes(v any) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, fmt.Errorf("unable to cast %#v of type %T to []byte", v, v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, nil
	case *big.Int:
		return decimal.NewFromBigInt(d, 0), nil
	case string:
		return decimal.NewFromString(d)
	case []byte:
		return decimal.NewFromString(string(d))
	case float32:
		return decimal.NewFromFloat32(d), nil
	case float64:
		return decimal.NewFromFloat(d), nil
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("unable to cast %#v of type %T to decimal", v, v)
	}
	return decimal.NewFromInt(i), nil
}

func toBits(v any) (transport.Bits, error) {
	switch b := v.(type) {
	case transport.Bits:
		return b, nil
	case []bool:
		return transport.Bits(b), nil
	case string:
		if bits, ok := transport.ParseBits(b); ok {
			return bits, nil
		}
	}
	return nil, fmt.Errorf("unable to cast %#v of type %T to bits", v, v)
}

func toInterval(v any) (transport.Interval, error) {
	switch iv := v.(type) {
	case transport.Interval:
		return iv, nil
	case time.Duration:
		return transport.Interval{Nanos: int64(iv)}, nil
	}
	return transport.Interval{}, fmt.Errorf("unable to cast %#v of type %T to interval", v, v)
}

func toTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return cast.ToTimeE(v)
}
