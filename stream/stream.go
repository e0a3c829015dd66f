// Package stream turns an asynchronous result handle into a pull-based
// sequence of mapped rows.
//
// A Stream moves through Created -> Connecting -> rows -> Exhausted -> Closed.
// The handle is resolved lazily by the first row-level call. At most one
// fetch is in flight and it completes on the caller's goroutine; a Stream is
// not safe for concurrent use. Rows cannot be re-read: a second pass needs a
// second query. A transport failure while connecting or fetching a row is
// terminal: later calls return the same error and only Close does work.
package stream

import (
	"context"
	"iter"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/nlimpid/sqlstream/mapping"
	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/sqlerr"
	"github.com/nlimpid/sqlstream/transport"
)

type tristate int8

const (
	unknown tristate = iota
	yes
	no
)

func (t tristate) String() string {
	switch t {
	case yes:
		return "true"
	case no:
		return "false"
	}
	return "unknown"
}

// Stream reads rows from a result handle and maps each through a Mapping.
type Stream[R any] struct {
	future    transport.Future[transport.Cursor]
	mapping   mapping.Mapping[R]
	cfg       settings
	listeners []Listener[R]

	lower      transport.Cursor
	columns    []transport.Column
	index      *record.NameIndex
	cursor     *record.Cursor
	connected  bool
	connectErr error
	fetchErr   error

	hasNextRow tristate
	readCount  uint64
	ended      bool
	closed     bool
}

// New creates a Stream over future. It registers with the owner given by
// WithOwner; nothing is fetched until the first row-level call.
func New[R any](future transport.Future[transport.Cursor], m mapping.Mapping[R], opts ...Option) *Stream[R] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.scope.Handle == "" {
		cfg.scope.Handle = uuid.NewString()
	}
	s := &Stream[R]{future: future, mapping: m, cfg: cfg}
	if cfg.owner != nil {
		cfg.owner.Add(s)
	}
	return s
}

// AddListener appends l to the listeners notified of stream events.
func (s *Stream[R]) AddListener(l Listener[R]) {
	s.listeners = append(s.listeners, l)
}

// SetTimeouts replaces the timeouts applied to later blocking calls.
func (s *Stream[R]) SetTimeouts(t Timeouts) {
	s.cfg.timeouts = t
}

// Handle returns the identifier of the result handle used in diagnostics.
func (s *Stream[R]) Handle() string { return s.cfg.scope.Handle }

// ReadCount returns the number of rows decoded so far.
func (s *Stream[R]) ReadCount() uint64 { return s.readCount }

// UpdateCount always fails with sqlerr.ErrUpdateCountUnknown: this layer does
// not report row counts for non-query statements.
func (s *Stream[R]) UpdateCount() (int64, error) {
	return -1, sqlerr.ErrUpdateCountUnknown
}

// Columns returns the result metadata, connecting first if needed.
func (s *Stream[R]) Columns(ctx context.Context) ([]transport.Column, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return s.columns, nil
}

// ColumnNames returns the result column names in order.
func (s *Stream[R]) ColumnNames(ctx context.Context) ([]string, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return nil, err
	}
	return append([]string(nil), s.index.Names()...), nil
}

// ReadOne reads and maps the next row. ok is false once the stream is exhausted.
func (s *Stream[R]) ReadOne(ctx context.Context) (row R, ok bool, err error) {
	return s.readRow(ctx)
}

// ReadAll reads every remaining row.
func (s *Stream[R]) ReadAll(ctx context.Context) ([]R, error) {
	out := make([]R, 0, s.cfg.expectedSize)
	for {
		v, ok, err := s.readRow(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

// ForEach calls fn for every remaining row and stops at the first error.
func (s *Stream[R]) ForEach(ctx context.Context, fn func(R) error) error {
	for {
		v, ok, err := s.readRow(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(v); err != nil {
			return err
		}
	}
}

// All returns the remaining rows as a range-over-func sequence. A read error
// is yielded once and ends the sequence.
func (s *Stream[R]) All(ctx context.Context) iter.Seq2[R, error] {
	return func(yield func(R, error) bool) {
		for {
			v, ok, err := s.readRow(ctx)
			if err != nil {
				var zero R
				yield(zero, err)
				return
			}
			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}

// Iterator returns a pull iterator over the remaining rows. Iterators share
// the stream position.
func (s *Stream[R]) Iterator(ctx context.Context) *Iterator[R] {
	return &Iterator[R]{s: s, ctx: ctx}
}

// Close releases the stream. It resolves the handle if that never happened,
// fires end-of-stream if it has not fired, closes the cursor and releases the
// handle, then deregisters from the owner. Every step runs even if an earlier
// one fails; failures are returned as a sqlerr.CloseError. Close is idempotent.
func (s *Stream[R]) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	if !s.connected {
		errs = multierr.Append(errs, s.connect(ctx))
	}
	if !s.ended {
		errs = multierr.Append(errs, s.endOfStream())
	}
	if s.lower != nil {
		errs = multierr.Append(errs, sqlerr.Wrap(s.cfg.scope, "close result cursor", s.lower.Close()))
	}
	cctx, cancel := withTimeout(ctx, s.cfg.timeouts.Close)
	errs = multierr.Append(errs, sqlerr.Wrap(s.cfg.scope, "release result handle", s.future.Close(cctx)))
	cancel()
	if s.cfg.owner != nil {
		s.cfg.owner.Remove(s)
	}

	err := sqlerr.Aggregate(errs)
	if lerr := s.dispatch(func(l Listener[R]) error { return l.CloseResult(s.info(), err) }); lerr != nil {
		err = sqlerr.Chain(err, lerr)
	}
	s.cfg.logger.Debug("result closed", "handle", s.Handle(), "rows", s.readCount, "err", err)
	return err
}

func (s *Stream[R]) ensureOpen(ctx context.Context) error {
	if s.closed {
		return sqlerr.ErrResourceReleased
	}
	return s.connect(ctx)
}

func (s *Stream[R]) connect(ctx context.Context) error {
	if s.connected {
		return s.connectErr
	}
	s.connected = true

	cctx, cancel := withTimeout(ctx, s.cfg.timeouts.Connect)
	defer cancel()
	lower, err := s.future.Get(cctx)
	if err != nil {
		s.connectErr = s.fail("resolve result handle", err)
		return s.connectErr
	}
	s.lower = lower

	cols, err := lower.Columns()
	if err != nil {
		s.connectErr = s.fail("read result metadata", err)
		return s.connectErr
	}
	s.columns = cols
	s.index = record.NewNameIndex(transport.ColumnNames(cols))
	s.cursor = record.NewCursor(lower, cols, s.index, s.cfg.record)
	s.cfg.logger.Debug("result connected", "handle", s.Handle(), "columns", len(cols))
	return nil
}

func (s *Stream[R]) advance(ctx context.Context) (bool, error) {
	if err := s.ensureOpen(ctx); err != nil {
		return false, err
	}
	if s.fetchErr != nil {
		return false, s.fetchErr
	}
	if s.ended {
		return false, nil
	}
	rctx, cancel := withTimeout(ctx, s.cfg.timeouts.Read)
	ok, err := s.lower.NextRow(rctx)
	cancel()
	if err != nil {
		s.fetchErr = s.fail("fetch next row", err)
		return false, s.fetchErr
	}
	s.setHasNextRow(ok)
	if !ok {
		if err := s.endOfStream(); err != nil {
			return false, err
		}
	}
	return ok, nil
}

func (s *Stream[R]) readRow(ctx context.Context) (R, bool, error) {
	var zero R
	ok, err := s.advance(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	s.cursor.Reset()
	v, err := s.mapping.Convert(s.cursor)
	if err != nil {
		return zero, false, s.fail("read row", err)
	}
	s.readCount++
	if err := s.dispatch(func(l Listener[R]) error { return l.RowRead(s.info(), v) }); err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (s *Stream[R]) setHasNextRow(ok bool) {
	next := no
	if ok {
		next = yes
	}
	if next == s.hasNextRow {
		return
	}
	s.cfg.logger.Debug("hasNextRow changed", "handle", s.Handle(), "from", s.hasNextRow, "to", next)
	s.hasNextRow = next
}

func (s *Stream[R]) endOfStream() error {
	if s.ended {
		return nil
	}
	s.ended = true
	return s.dispatch(func(l Listener[R]) error { return l.EndOfStream(s.info()) })
}

// fail scopes err, routes it once through ReadException and returns it.
func (s *Stream[R]) fail(op string, err error) error {
	err = sqlerr.Wrap(s.cfg.scope, op, err)
	if lerr := s.dispatch(func(l Listener[R]) error { return l.ReadException(s.info(), err) }); lerr != nil {
		return sqlerr.Chain(err, lerr)
	}
	return err
}

func (s *Stream[R]) dispatch(fn func(Listener[R]) error) error {
	for _, l := range s.listeners {
		if err := fn(l); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream[R]) info() Info {
	return Info{Handle: s.cfg.scope.Handle, Statement: s.cfg.scope.Statement, ReadCount: s.readCount}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
