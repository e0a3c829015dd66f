package mapping

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/nlimpid/sqlstream/convert"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/sqlerr"
)

// ErrDuplicateBinding reports a column claimed by more than one setter.
var ErrDuplicateBinding = errors.New("column is already bound")

// Setter stores one decoded column value into an entity.
type Setter[E any] func(e E, v any) error

// Set builds a Setter that decodes with dec and calls assign. NULL values
// leave the entity untouched.
func Set[E any, T any](dec convert.Func[T], assign func(E, T)) Setter[E] {
	return func(e E, v any) error {
		t, ok, err := dec(v)
		if err != nil {
			return err
		}
		if ok {
			assign(e, t)
		}
		return nil
	}
}

// SetNullable builds a Setter that passes NULL through as a nil pointer.
func SetNullable[E any, T any](dec convert.Func[T], assign func(E, *T)) Setter[E] {
	return func(e E, v any) error {
		t, ok, err := dec(v)
		if err != nil {
			return err
		}
		if !ok {
			assign(e, nil)
			return nil
		}
		assign(e, &t)
		return nil
	}
}

type indexSetter[E any] struct {
	index int
	set   Setter[E]
}

type nameSetter[E any] struct {
	name string
	set  Setter[E]
}

// Builder maps rows onto entities created by a factory, with setters keyed by
// column index or by column name. Register setters before the first Convert;
// after that a Builder may be shared by any number of streams.
//
// Name setters are resolved against the row's NameIndex on first use: the
// k-th setter registered for a name binds to the k-th column carrying it.
// Columns without a setter are skipped with a single MoveNext and are never
// decoded. A column claimed by two setters, whether by index, by name or by
// Skip, fails with ErrDuplicateBinding. Resolutions are cached per
// column-name list.
type Builder[E any] struct {
	factory func() E
	byIndex []indexSetter[E]
	byName  []nameSetter[E]

	mu    sync.Mutex
	plans map[planKey][]plan[E]
}

type planKey struct {
	hash  uint64
	ncols int
}

func keyOf(names []string) planKey {
	h := fnv.New64a()
	for _, n := range names {
		_, _ = h.Write([]byte(n))
		_, _ = h.Write([]byte{0})
	}
	return planKey{hash: h.Sum64(), ncols: len(names)}
}

type plan[E any] struct {
	names []string
	steps []Setter[E]
}

// NewBuilder returns a Builder creating entities with factory.
func NewBuilder[E any](factory func() E) *Builder[E] {
	return &Builder[E]{factory: factory, plans: make(map[planKey][]plan[E])}
}

// Index binds column i to set.
func (b *Builder[E]) Index(i int, set Setter[E]) *Builder[E] {
	b.byIndex = append(b.byIndex, indexSetter[E]{index: i, set: set})
	return b
}

// Name binds the next unbound column called name to set.
func (b *Builder[E]) Name(name string, set Setter[E]) *Builder[E] {
	b.byName = append(b.byName, nameSetter[E]{name: name, set: set})
	return b
}

// Skip leaves column i undecoded.
func (b *Builder[E]) Skip(i int) *Builder[E] {
	return b.Index(i, nil)
}

func (b *Builder[E]) Convert(c *record.Cursor) (E, error) {
	var zero E
	steps, err := b.plan(c.NameIndex())
	if err != nil {
		return zero, err
	}
	e := b.factory()
	for i, set := range steps {
		ok, err := c.MoveNext()
		if err != nil {
			return zero, err
		}
		if !ok {
			return zero, &sqlerr.NoSuchColumnError{Index: i, Count: len(c.Columns())}
		}
		if set == nil {
			continue
		}
		v, err := c.FetchCurrentValue()
		if err != nil {
			return zero, err
		}
		if err := set(e, v); err != nil {
			return zero, fmt.Errorf("failed to set column %q: %w", c.CurrentName(), err)
		}
	}
	return e, nil
}

func (b *Builder[E]) plan(x *record.NameIndex) ([]Setter[E], error) {
	names := x.Names()
	key := keyOf(names)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.plans[key] {
		if slices.Equal(p.names, names) {
			return p.steps, nil
		}
	}

	var (
		steps []Setter[E]
		bound []bool
	)
	place := func(i int, set Setter[E]) error {
		for len(steps) <= i {
			steps = append(steps, nil)
			bound = append(bound, false)
		}
		if bound[i] {
			return fmt.Errorf("failed to bind column %d: %w", i, ErrDuplicateBinding)
		}
		steps[i], bound[i] = set, true
		return nil
	}
	for _, s := range b.byIndex {
		if s.index < 0 {
			return nil, &sqlerr.NoSuchColumnError{Index: s.index, Count: x.Len()}
		}
		if err := place(s.index, s.set); err != nil {
			return nil, err
		}
	}
	seen := make(map[string]int, len(b.byName))
	for _, s := range b.byName {
		k := seen[s.name]
		seen[s.name] = k + 1
		i, err := x.ResolveAt(s.name, k)
		if err != nil {
			return nil, err
		}
		if err := place(i, s.set); err != nil {
			return nil, fmt.Errorf("failed to bind %q: %w", s.name, err)
		}
	}
	b.plans[key] = append(b.plans[key], plan[E]{names: slices.Clone(names), steps: steps})
	return steps, nil
}
