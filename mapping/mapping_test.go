package mapping_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlimpid/sqlstream/convert"
	"github.com/nlimpid/sqlstream/mapping"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/sqlerr"
	"github.com/nlimpid/sqlstream/transport"
	"github.com/nlimpid/sqlstream/transport/memory"
)

func open(t *testing.T, cols []transport.Column, row []any) (*record.Cursor, *memory.Cursor) {
	t.Helper()
	lower := memory.New(cols, row)
	lower.StrictFetch = true
	ok, err := lower.NextRow(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	c := record.NewCursor(lower, cols, record.NewNameIndex(transport.ColumnNames(cols)), record.DefaultOptions())
	c.Reset()
	return c, lower
}

type pair struct {
	First  int64
	Second int64
	Label  string
	Note   *string
}

func TestBuilderBindsDuplicatesBySubIndex(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8, "b", transport.AtomCharacter, "a", transport.AtomInt8)
	b := mapping.NewBuilder(func() *pair { return &pair{} }).
		Name("a", mapping.Set(convert.Int64, func(p *pair, v int64) { p.First = v })).
		Name("a", mapping.Set(convert.Int64, func(p *pair, v int64) { p.Second = v })).
		Name("b", mapping.Set(convert.String, func(p *pair, v string) { p.Label = v }))

	c, _ := open(t, cols, []any{int64(1), "x", int64(3)})
	got, err := b.Convert(c)
	require.NoError(t, err)
	assert.Equal(t, &pair{First: 1, Second: 3, Label: "x"}, got)
}

func TestBuilderSkipsUnboundColumnsWithoutDecoding(t *testing.T) {
	cols := memory.Columns("id", transport.AtomInt8, "blob", transport.AtomOctet, "label", transport.AtomCharacter)
	b := mapping.NewBuilder(func() *pair { return &pair{} }).
		Index(0, mapping.Set(convert.Int64, func(p *pair, v int64) { p.First = v })).
		Skip(1).
		Name("label", mapping.Set(convert.String, func(p *pair, v string) { p.Label = v }))

	c, lower := open(t, cols, []any{int64(9), []byte("big"), "l"})
	got, err := b.Convert(c)
	require.NoError(t, err)
	assert.Equal(t, &pair{First: 9, Label: "l"}, got)
	assert.Equal(t, 2, lower.Stats.Fetch)
	assert.Equal(t, 3, lower.Stats.NextColumn)
}

func TestBuilderNullable(t *testing.T) {
	cols := memory.Columns("note", transport.AtomCharacter, "label", transport.AtomCharacter)
	b := mapping.NewBuilder(func() *pair { return &pair{Label: "keep"} }).
		Name("note", mapping.SetNullable(convert.String, func(p *pair, v *string) { p.Note = v })).
		Name("label", mapping.Set(convert.String, func(p *pair, v string) { p.Label = v }))

	c, _ := open(t, cols, []any{nil, nil})
	got, err := b.Convert(c)
	require.NoError(t, err)
	assert.Nil(t, got.Note)
	assert.Equal(t, "keep", got.Label, "Set leaves the field alone on NULL")

	c, _ = open(t, cols, []any{"n", "l"})
	got, err = b.Convert(c)
	require.NoError(t, err)
	require.NotNil(t, got.Note)
	assert.Equal(t, "n", *got.Note)
}

func TestBuilderErrors(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8)
	newPair := func() *pair { return &pair{} }

	c, _ := open(t, cols, []any{int64(1)})
	_, err := mapping.NewBuilder(newPair).
		Name("missing", mapping.Set(convert.Int64, func(p *pair, v int64) {})).
		Convert(c)
	var nf *sqlerr.ColumnNotFoundError
	assert.ErrorAs(t, err, &nf)

	c, _ = open(t, cols, []any{int64(1)})
	_, err = mapping.NewBuilder(newPair).
		Name("a", mapping.Set(convert.Int64, func(p *pair, v int64) {})).
		Name("a", mapping.Set(convert.Int64, func(p *pair, v int64) {})).
		Convert(c)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 1, nf.SubIndex)

	c, _ = open(t, cols, []any{int64(1)})
	_, err = mapping.NewBuilder(newPair).
		Index(3, mapping.Set(convert.Int64, func(p *pair, v int64) {})).
		Convert(c)
	var noSuch *sqlerr.NoSuchColumnError
	assert.ErrorAs(t, err, &noSuch)

	c, _ = open(t, cols, []any{int64(1)})
	_, err = mapping.NewBuilder(newPair).
		Index(-1, mapping.Set(convert.Int64, func(p *pair, v int64) {})).
		Convert(c)
	assert.ErrorAs(t, err, &noSuch)

	c, _ = open(t, cols, []any{int64(1)})
	_, err = mapping.NewBuilder(newPair).
		Index(0, mapping.Set(convert.Bits, func(p *pair, v transport.Bits) {})).
		Convert(c)
	assert.ErrorContains(t, err, `failed to set column "a"`)
}

func TestBuilderRejectsDuplicateBindings(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8, "b", transport.AtomInt8)
	newPair := func() *pair { return &pair{} }
	setFirst := mapping.Set(convert.Int64, func(p *pair, v int64) { p.First = v })

	tests := []struct {
		name    string
		builder *mapping.Builder[*pair]
	}{
		{name: "name over index", builder: mapping.NewBuilder(newPair).Index(0, setFirst).Name("a", setFirst)},
		{name: "name over skip", builder: mapping.NewBuilder(newPair).Skip(1).Name("b", setFirst)},
		{name: "index twice", builder: mapping.NewBuilder(newPair).Index(1, setFirst).Index(1, setFirst)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, lower := open(t, cols, []any{int64(1), int64(2)})
			_, err := tt.builder.Convert(c)
			assert.ErrorIs(t, err, mapping.ErrDuplicateBinding)
			assert.Equal(t, 0, lower.Stats.Fetch)
		})
	}
}

func TestBuilderConcurrentUse(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8, "b", transport.AtomCharacter)
	b := mapping.NewBuilder(func() *pair { return &pair{} }).
		Name("b", mapping.Set(convert.String, func(p *pair, v string) { p.Label = v })).
		Name("a", mapping.Set(convert.Int64, func(p *pair, v int64) { p.First = v }))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			lower := memory.New(cols, []any{int64(i), "v"})
			_, _ = lower.NextRow(context.Background())
			c := record.NewCursor(lower, cols, record.NewNameIndex(transport.ColumnNames(cols)), record.DefaultOptions())
			c.Reset()
			got, err := b.Convert(c)
			assert.NoError(t, err)
			assert.Equal(t, int64(i), got.First)
		}(i)
	}
	wg.Wait()
}

func TestSingle(t *testing.T) {
	cols := memory.Columns("n", transport.AtomInt8, "other", transport.AtomCharacter)

	c, lower := open(t, cols, []any{int64(5), "ignored"})
	v, err := mapping.Single(convert.Int64).Convert(c)
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
	assert.Equal(t, 1, lower.Stats.Fetch)

	c, _ = open(t, cols, []any{nil, "ignored"})
	v, err = mapping.Single(convert.Int64).Convert(c)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	c, _ = open(t, nil, []any{})
	_, err = mapping.Single(convert.Int64).Convert(c)
	var noSuch *sqlerr.NoSuchColumnError
	assert.ErrorAs(t, err, &noSuch)
}

func TestDefaultAndEntities(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8, "a", transport.AtomInt8)

	c, _ := open(t, cols, []any{int64(1), int64(2)})
	e, err := mapping.Default().Convert(c)
	require.NoError(t, err)
	v, err := record.Get(e, convert.Int64, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	c, _ = open(t, cols, []any{int64(1), int64(2)})
	e, err = mapping.Entities(record.Options{DefaultPolicy: record.PolicyLast}).Convert(c)
	require.NoError(t, err)
	v, err = record.Get(e, convert.Int64, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestFunc(t *testing.T) {
	cols := memory.Columns("a", transport.AtomInt8, "b", transport.AtomCharacter)
	m := mapping.Func[string](func(c *record.Cursor) (string, error) {
		return record.Get(c, convert.String, "b")
	})
	c, _ := open(t, cols, []any{int64(1), "bee"})
	v, err := m.Convert(c)
	require.NoError(t, err)
	assert.Equal(t, "bee", v)
}
