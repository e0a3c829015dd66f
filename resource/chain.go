// Package resource tracks parent/child ownership of closeable resources. A
// parent registers each child at construction; the child deregisters itself
// when it closes; closing the parent closes every child still registered.
package resource

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/nlimpid/sqlstream/sqlerr"
)

// Closer is a child resource.
type Closer interface {
	Close(ctx context.Context) error
}

// Owner is what a child sees of its parent.
type Owner interface {
	Add(c Closer)
	Remove(c Closer)
}

// Chain is an Owner holding children in registration order.
type Chain struct {
	mu       sync.Mutex
	children []Closer
}

func (ch *Chain) Add(c Closer) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.children = append(ch.children, c)
}

func (ch *Chain) Remove(c Closer) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	for i, x := range ch.children {
		if x == c {
			ch.children = append(ch.children[:i], ch.children[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered children.
func (ch *Chain) Len() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.children)
}

// CloseAll closes every child registered when it starts, most recent first,
// and deregisters them. Children added meanwhile stay registered. Every child
// is closed even when an earlier one fails; failures come back as a
// sqlerr.CloseError with the first one as primary.
func (ch *Chain) CloseAll(ctx context.Context) error {
	ch.mu.Lock()
	children := append([]Closer(nil), ch.children...)
	ch.mu.Unlock()

	var errs error
	for i := len(children) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, children[i].Close(ctx))
	}

	for _, c := range children {
		ch.Remove(c)
	}
	return sqlerr.Aggregate(errs)
}
