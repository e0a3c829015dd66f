package resource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlimpid/sqlstream/sqlerr"
)

type child struct {
	name  string
	owner Owner
	err   error
	log   *[]string
}

func (c *child) Close(ctx context.Context) error {
	*c.log = append(*c.log, c.name)
	if c.owner != nil {
		c.owner.Remove(c)
	}
	return c.err
}

func TestChainAddRemove(t *testing.T) {
	var (
		ch  Chain
		log []string
	)
	a := &child{name: "a", log: &log}
	b := &child{name: "b", log: &log}
	ch.Add(a)
	ch.Add(b)
	assert.Equal(t, 2, ch.Len())

	ch.Remove(a)
	assert.Equal(t, 1, ch.Len())
	ch.Remove(a)
	assert.Equal(t, 1, ch.Len(), "removing an unknown child is a no-op")
}

func TestChainCloseAllNewestFirst(t *testing.T) {
	var (
		ch  Chain
		log []string
	)
	for _, n := range []string{"a", "b", "c"} {
		ch.Add(&child{name: n, owner: &ch, log: &log})
	}

	require.NoError(t, ch.CloseAll(context.Background()))
	assert.Equal(t, []string{"c", "b", "a"}, log)
	assert.Equal(t, 0, ch.Len())
}

func TestChainCloseAllAggregates(t *testing.T) {
	var (
		ch  Chain
		log []string
	)
	e1, e2 := errors.New("a failed"), errors.New("c failed")
	ch.Add(&child{name: "a", err: e1, log: &log})
	ch.Add(&child{name: "b", log: &log})
	ch.Add(&child{name: "c", err: e2, log: &log})

	err := ch.CloseAll(context.Background())
	var ce *sqlerr.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Same(t, e2, ce.Primary)
	assert.Equal(t, []error{e1}, ce.Secondary)
	assert.Len(t, log, 3, "every child is closed")
	assert.Equal(t, 0, ch.Len())
}

type spawner struct {
	child
	late *child
}

func (s *spawner) Close(ctx context.Context) error {
	s.owner.(*Chain).Add(s.late)
	return s.child.Close(ctx)
}

func TestChainCloseAllKeepsChildrenAddedMeanwhile(t *testing.T) {
	var (
		ch  Chain
		log []string
	)
	late := &child{name: "late", owner: &ch, log: &log}
	ch.Add(&child{name: "a", log: &log})
	ch.Add(&spawner{child: child{name: "b", owner: &ch, log: &log}, late: late})

	require.NoError(t, ch.CloseAll(context.Background()))
	assert.Equal(t, []string{"b", "a"}, log)
	assert.Equal(t, 1, ch.Len(), "a child registered during close is not dropped")

	require.NoError(t, ch.CloseAll(context.Background()))
	assert.Equal(t, []string{"b", "a", "late"}, log)
	assert.Equal(t, 0, ch.Len())
}
