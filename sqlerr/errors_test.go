package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestWrap(t *testing.T) {
	scope := Scope{Transaction: "tx-1", Statement: "SELECT 1", Params: []any{1}, Handle: "h-1"}
	boom := errors.New("connection reset")

	tests := []struct {
		name   string
		err    error
		scoped bool
	}{
		{name: "nil", err: nil},
		{name: "transport failure", err: boom, scoped: true},
		{name: "column not found", err: &ColumnNotFoundError{Name: "x", SubIndex: -1}},
		{name: "ambiguous", err: &AmbiguousColumnError{Name: "a", Indices: []int{0, 2}}},
		{name: "no such column", err: fmt.Errorf("read: %w", &NoSuchColumnError{Index: 3, Count: 2})},
		{name: "null value", err: &NullValueError{Column: "c"}},
		{name: "mode conflict", err: ErrCursorModeConflict},
		{name: "released", err: ErrResourceReleased},
		{name: "exhausted", err: ErrSequenceExhausted},
		{name: "stale row", err: ErrStaleRow},
		{name: "unsupported type", err: &UnsupportedTypeError{Column: "c", Type: "clob"}, scoped: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(scope, "fetch next row", tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			var scoped *TransactionScopedError
			assert.Equal(t, tt.scoped, errors.As(got, &scoped))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestWrapKeepsExistingScope(t *testing.T) {
	inner := Wrap(Scope{Transaction: "inner"}, "resolve result handle", errors.New("boom"))
	outer := Wrap(Scope{Transaction: "outer"}, "close", inner)
	assert.Same(t, inner, outer)
}

func TestTransactionScopedErrorMessage(t *testing.T) {
	err := Wrap(Scope{Transaction: "tx-1", Statement: "SELECT ?", Params: []any{7}, Handle: "h"}, "fetch next row", errors.New("eof"))
	assert.Equal(t, `sqlstream: failed to fetch next row (tx=tx-1) sql="SELECT ?" params=[7] handle=h: eof`, err.Error())

	err = Wrap(Scope{}, "commit", errors.New("eof"))
	assert.Equal(t, "sqlstream: failed to commit: eof", err.Error())
}

func TestColumnNotFoundErrorMessage(t *testing.T) {
	assert.Equal(t, `sqlstream: column "x" not found`, (&ColumnNotFoundError{Name: "x", SubIndex: -1}).Error())
	assert.Equal(t, `sqlstream: column "a" not found (subIndex=2)`, (&ColumnNotFoundError{Name: "a", SubIndex: 2}).Error())
}

func TestAggregate(t *testing.T) {
	e1, e2, e3 := errors.New("first"), errors.New("second"), errors.New("third")

	assert.NoError(t, Aggregate(nil))
	assert.Same(t, e1, Aggregate(multierr.Append(nil, e1)))

	err := Aggregate(multierr.Combine(e1, nil, e2, e3))
	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Same(t, e1, ce.Primary)
	assert.Equal(t, []error{e2, e3}, ce.Secondary)
	assert.ErrorIs(t, err, e2)
	assert.ErrorIs(t, err, e3)
	assert.Equal(t, "first (secondary: second; third)", err.Error())
}

func TestChain(t *testing.T) {
	primary, listener := errors.New("read failed"), errors.New("listener failed")

	assert.Nil(t, Chain(nil, nil))
	assert.Same(t, listener, Chain(nil, listener))
	assert.Same(t, primary, Chain(primary, nil))

	err := Chain(primary, listener)
	var ce *CloseError
	require.ErrorAs(t, err, &ce)
	assert.Same(t, primary, ce.Primary)
	assert.Equal(t, []error{listener}, ce.Secondary)

	third := errors.New("third")
	err = Chain(err, third)
	require.ErrorAs(t, err, &ce)
	assert.Same(t, primary, ce.Primary)
	assert.Equal(t, []error{listener, third}, ce.Secondary)
}
