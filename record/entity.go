package record

import (
	"fmt"
	"strings"

	"github.com/nlimpid/sqlstream/sqlerr"
)

// Entity is a fully decoded row. It does not reference the stream it came
// from and may be retained freely.
type Entity struct {
	values []any
	index  *NameIndex
	opts   Options
}

// NewEntity wraps values; len(values) must equal index.Len().
func NewEntity(values []any, index *NameIndex, opts Options) *Entity {
	return &Entity{values: values, index: index, opts: opts}
}

// WithOptions returns a view of e that resolves names with opts.
func (e *Entity) WithOptions(opts Options) *Entity {
	return &Entity{values: e.values, index: e.index, opts: opts}
}

// Len returns the number of columns.
func (e *Entity) Len() int { return len(e.values) }

// Names returns the column names in order.
func (e *Entity) Names() []string { return e.index.Names() }

// NameIndex returns the shared name resolver.
func (e *Entity) NameIndex() *NameIndex { return e.index }

// ValueOf returns the value of the column called name.
func (e *Entity) ValueOf(name string, opts ...ResolveOption) (any, error) {
	i, err := resolve(e.index, e.opts.DefaultPolicy, name, opts)
	if err != nil {
		return nil, err
	}
	return e.values[i], nil
}

// ValueAt returns the value at column index i.
func (e *Entity) ValueAt(i int) (any, error) {
	if i < 0 || i >= len(e.values) {
		return nil, &sqlerr.NoSuchColumnError{Index: i, Count: len(e.values)}
	}
	return e.values[i], nil
}

// Values returns a copy of the row values.
func (e *Entity) Values() []any {
	return append([]any(nil), e.values...)
}

// Map returns name -> value. For duplicated names the first occurrence wins.
func (e *Entity) Map() map[string]any {
	m := make(map[string]any, len(e.values))
	for i, v := range e.values {
		n := e.index.Name(i)
		if _, ok := m[n]; !ok {
			m[n] = v
		}
	}
	return m
}

func (e *Entity) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, v := range e.values {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%s=%v", e.index.Name(i), v)
	}
	sb.WriteByte('}')
	return sb.String()
}
