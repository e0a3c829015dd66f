package record

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nlimpid/sqlstream/sqlerr"
)

// AmbiguousPolicy selects among several columns sharing one name.
type AmbiguousPolicy int

const (
	// PolicyFirst takes the lowest index.
	PolicyFirst AmbiguousPolicy = iota
	// PolicyLast takes the highest index.
	PolicyLast
	// PolicyError fails with AmbiguousColumnError.
	PolicyError
)

func (p AmbiguousPolicy) String() string {
	switch p {
	case PolicyFirst:
		return "first"
	case PolicyLast:
		return "last"
	case PolicyError:
		return "error"
	}
	return fmt.Sprintf("policy(%d)", int(p))
}

// ParsePolicy parses "first", "last" or "error", case-insensitively.
func ParsePolicy(s string) (AmbiguousPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return PolicyFirst, nil
	case "last":
		return PolicyLast, nil
	case "error":
		return PolicyError, nil
	}
	return PolicyFirst, fmt.Errorf("unknown ambiguous column policy %q", s)
}

// NameIndex resolves column names to physical indices. The lookup map is
// built on first resolution and never changes afterwards, so a NameIndex may
// be shared by concurrent readers.
type NameIndex struct {
	names []string

	once   sync.Once
	byName map[string][]int
}

// NewNameIndex indexes names in declaration order.
func NewNameIndex(names []string) *NameIndex {
	return &NameIndex{names: names}
}

func (x *NameIndex) lookup() map[string][]int {
	x.once.Do(func() {
		m := make(map[string][]int, len(x.names))
		for i, n := range x.names {
			m[n] = append(m[n], i)
		}
		x.byName = m
	})
	return x.byName
}

// Len returns the number of columns.
func (x *NameIndex) Len() int { return len(x.names) }

// Names returns the column names in order. The slice must not be modified.
func (x *NameIndex) Names() []string { return x.names }

// Name returns the name of the column at index i.
func (x *NameIndex) Name(i int) string { return x.names[i] }

// Contains reports whether name occurs at least once.
func (x *NameIndex) Contains(name string) bool {
	_, ok := x.lookup()[name]
	return ok
}

// Indices returns every index carrying name, ascending.
func (x *NameIndex) Indices(name string) []int {
	return x.lookup()[name]
}

// Resolve returns the index of name under policy.
func (x *NameIndex) Resolve(name string, policy AmbiguousPolicy) (int, error) {
	idx, ok := x.lookup()[name]
	if !ok {
		return -1, &sqlerr.ColumnNotFoundError{Name: name, SubIndex: -1}
	}
	if len(idx) == 1 {
		return idx[0], nil
	}
	switch policy {
	case PolicyFirst:
		return idx[0], nil
	case PolicyLast:
		return idx[len(idx)-1], nil
	default:
		return -1, &sqlerr.AmbiguousColumnError{Name: name, Indices: append([]int(nil), idx...)}
	}
}

// ResolveAt returns the index of the sub-th (0-based) column named name.
func (x *NameIndex) ResolveAt(name string, sub int) (int, error) {
	idx := x.lookup()[name]
	if sub < 0 || sub >= len(idx) {
		return -1, &sqlerr.ColumnNotFoundError{Name: name, SubIndex: sub}
	}
	return idx[sub], nil
}
