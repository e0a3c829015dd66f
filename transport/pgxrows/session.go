package pgxrows

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/nlimpid/sqlstream/transport"
)

// Querier is implemented by *pgx.Conn, pgx.Tx and *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Session runs queries through pgx. With a pgx.Tx it commits and rolls back
// that transaction; otherwise Commit and Rollback do nothing.
type Session struct {
	q  Querier
	tx pgx.Tx
}

// NewSession returns a session over q. If q is a pgx.Tx, the session ends it.
func NewSession(q Querier) *Session {
	s := &Session{q: q}
	if tx, ok := q.(pgx.Tx); ok {
		s.tx = tx
	}
	return s
}

// Query starts statement in the background and returns a handle to its cursor.
func (s *Session) Query(ctx context.Context, statement string, args ...any) transport.Future[transport.Cursor] {
	return transport.Go(ctx, func(ctx context.Context) (transport.Cursor, error) {
		rows, err := s.q.Query(ctx, statement, args...)
		if err != nil {
			return nil, err
		}
		return FromRows(rows), nil
	})
}

func (s *Session) Commit(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit(ctx)
}

func (s *Session) Rollback(ctx context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback(ctx)
}
