package sqlrows

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nlimpid/sqlstream/transport"
)

// Session runs queries on a database/sql Querier. Sessions built by
// NewSession run in autocommit mode; Commit and Rollback do nothing.
type Session struct {
	q  Querier
	tx *sql.Tx
}

// NewSession returns an autocommit session over q.
func NewSession(q Querier) *Session {
	return &Session{q: q}
}

// BeginSession starts a database transaction on db.
func BeginSession(ctx context.Context, db *sql.DB, opts *sql.TxOptions) (*Session, error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Session{q: tx, tx: tx}, nil
}

// Query starts statement in the background and returns a handle to its cursor.
func (s *Session) Query(ctx context.Context, statement string, args ...any) transport.Future[transport.Cursor] {
	return transport.Go(ctx, func(ctx context.Context) (transport.Cursor, error) {
		rows, err := s.q.QueryContext(ctx, statement, args...)
		if err != nil {
			return nil, err
		}
		return FromRows(rows), nil
	})
}

func (s *Session) Commit(context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Commit()
}

func (s *Session) Rollback(context.Context) error {
	if s.tx == nil {
		return nil
	}
	return s.tx.Rollback()
}
