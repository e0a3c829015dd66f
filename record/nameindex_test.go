package record

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlimpid/sqlstream/sqlerr"
)

func TestNameIndexDuplicates(t *testing.T) {
	x := NewNameIndex([]string{"a", "b", "a"})

	tests := []struct {
		name    string
		col     string
		policy  AmbiguousPolicy
		want    int
		wantErr any
	}{
		{name: "first", col: "a", policy: PolicyFirst, want: 0},
		{name: "last", col: "a", policy: PolicyLast, want: 2},
		{name: "error", col: "a", policy: PolicyError, wantErr: &sqlerr.AmbiguousColumnError{}},
		{name: "unique under error", col: "b", policy: PolicyError, want: 1},
		{name: "unique under last", col: "b", policy: PolicyLast, want: 1},
		{name: "unknown", col: "z", policy: PolicyFirst, wantErr: &sqlerr.ColumnNotFoundError{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := x.Resolve(tt.col, tt.policy)
			switch want := tt.wantErr.(type) {
			case *sqlerr.AmbiguousColumnError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, []int{0, 2}, want.Indices)
			case *sqlerr.ColumnNotFoundError:
				require.ErrorAs(t, err, &want)
				assert.Equal(t, -1, want.SubIndex)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNameIndexResolveAt(t *testing.T) {
	x := NewNameIndex([]string{"a", "b", "a"})

	i, err := x.ResolveAt("a", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = x.ResolveAt("a", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = x.ResolveAt("a", 2)
	var nf *sqlerr.ColumnNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, 2, nf.SubIndex)

	_, err = x.ResolveAt("z", 0)
	assert.True(t, errors.As(err, &nf))
}

func TestNameIndexAccessors(t *testing.T) {
	x := NewNameIndex([]string{"a", "b", "a"})
	assert.Equal(t, 3, x.Len())
	assert.Equal(t, "b", x.Name(1))
	assert.True(t, x.Contains("a"))
	assert.False(t, x.Contains("c"))
	assert.Equal(t, []int{0, 2}, x.Indices("a"))
	assert.Nil(t, x.Indices("c"))
}

func TestNameIndexConcurrentResolve(t *testing.T) {
	x := NewNameIndex([]string{"id", "name", "id"})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := x.Resolve("id", PolicyLast)
			assert.NoError(t, err)
			assert.Equal(t, 2, got)
		}()
	}
	wg.Wait()
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"first", "FIRST", " first ", ""} {
		p, err := ParsePolicy(s)
		require.NoError(t, err)
		assert.Equal(t, PolicyFirst, p)
	}
	p, err := ParsePolicy("last")
	require.NoError(t, err)
	assert.Equal(t, PolicyLast, p)
	p, err = ParsePolicy("Error")
	require.NoError(t, err)
	assert.Equal(t, PolicyError, p)
	assert.Equal(t, "error", p.String())

	_, err = ParsePolicy("middle")
	assert.Error(t, err)
}

func TestResolveOptions(t *testing.T) {
	x := NewNameIndex([]string{"a", "b", "a"})

	i, err := resolve(x, PolicyLast, "a", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	i, err = resolve(x, PolicyLast, "a", []ResolveOption{WithPolicy(PolicyFirst)})
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = resolve(x, PolicyError, "a", []ResolveOption{WithSubIndex(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	_, err = resolve(x, PolicyFirst, "a", []ResolveOption{WithSubIndex(1), WithPolicy(PolicyError)})
	var amb *sqlerr.AmbiguousColumnError
	assert.ErrorAs(t, err, &amb, "the last option wins")
}
