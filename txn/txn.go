// Package txn owns the result streams opened inside a transaction. Ending a
// transaction closes every stream it still owns before the session commits
// or rolls back.
package txn

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/exp/slog"

	"github.com/nlimpid/sqlstream/mapping"
	"github.com/nlimpid/sqlstream/resource"
	"github.com/nlimpid/sqlstream/sqlerr"
	"github.com/nlimpid/sqlstream/stream"
	"github.com/nlimpid/sqlstream/transport"
)

// Session is the server-side transaction a Transaction drives. Query returns
// immediately with a handle that resolves to the result cursor.
type Session interface {
	Query(ctx context.Context, statement string, args ...any) transport.Future[transport.Cursor]
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithStreamOptions applies opts to every stream opened by the transaction.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(t *Transaction) {
		t.streamOpts = append(t.streamOpts, opts...)
	}
}

// WithLogger sets the transaction logger; it is also handed to its streams.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transaction) {
		if l != nil {
			t.logger = l
		}
	}
}

// Transaction is a parent resource for result streams. It is safe for
// concurrent use; the streams it returns are not.
type Transaction struct {
	id         uuid.UUID
	session    Session
	chain      resource.Chain
	streamOpts []stream.Option
	logger     *slog.Logger

	mu   sync.Mutex
	done bool
}

// Begin wraps session.
func Begin(session Session, opts ...Option) *Transaction {
	t := &Transaction{id: uuid.New(), session: session, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	t.logger.Debug("transaction started", "tx", t.id.String())
	return t
}

// ID identifies the transaction in diagnostics.
func (t *Transaction) ID() string { return t.id.String() }

// Streams returns the number of open streams owned by t.
func (t *Transaction) Streams() int { return t.chain.Len() }

// Query executes statement and returns a stream of rows mapped by m. The
// stream is owned by t until it is closed.
func Query[R any](ctx context.Context, t *Transaction, m mapping.Mapping[R], statement string, args ...any) (*stream.Stream[R], error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, sqlerr.ErrResourceReleased
	}
	fut := t.session.Query(ctx, statement, args...)
	opts := make([]stream.Option, 0, len(t.streamOpts)+3)
	opts = append(opts, stream.WithLogger(t.logger))
	opts = append(opts, t.streamOpts...)
	opts = append(opts,
		stream.WithOwner(&t.chain),
		stream.WithScope(sqlerr.Scope{Transaction: t.ID(), Statement: statement, Params: args}),
	)
	return stream.New(fut, m, opts...), nil
}

// Commit closes every owned stream, then commits.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, "commit", t.session.Commit)
}

// Rollback closes every owned stream, then rolls back.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, "rollback", t.session.Rollback)
}

// Close rolls back unless the transaction already ended.
func (t *Transaction) Close(ctx context.Context) error {
	return t.Rollback(ctx)
}

func (t *Transaction) finish(ctx context.Context, op string, end func(context.Context) error) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	t.mu.Unlock()

	var errs error
	if err := t.chain.CloseAll(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}
	scope := sqlerr.Scope{Transaction: t.ID()}
	errs = multierr.Append(errs, sqlerr.Wrap(scope, op, end(ctx)))
	err := sqlerr.Aggregate(errs)
	t.logger.Debug("transaction ended", "tx", t.ID(), "op", op, "err", err)
	return err
}
