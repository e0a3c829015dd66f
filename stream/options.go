package stream

import (
	"time"

	"golang.org/x/exp/slog"

	"github.com/nlimpid/sqlstream/record"
	"github.com/nlimpid/sqlstream/resource"
	"github.com/nlimpid/sqlstream/sqlerr"
)

// Timeouts bound the blocking phases of a stream. Zero means no bound.
type Timeouts struct {
	// Connect bounds resolution of the result handle.
	Connect time.Duration
	// Read bounds a single row fetch.
	Read time.Duration
	// Close bounds the release of the result handle.
	Close time.Duration
}

// Option configures a Stream.
type Option func(*settings)

type settings struct {
	owner        resource.Owner
	scope        sqlerr.Scope
	timeouts     Timeouts
	record       record.Options
	logger       *slog.Logger
	expectedSize int
}

func defaultSettings() settings {
	return settings{
		record: record.DefaultOptions(),
		logger: slog.Default(),
	}
}

// WithOwner registers the stream with owner; the stream deregisters on Close.
func WithOwner(owner resource.Owner) Option {
	return func(s *settings) {
		s.owner = owner
	}
}

// WithScope sets the diagnostic context attached to transport errors.
func WithScope(scope sqlerr.Scope) Option {
	return func(s *settings) {
		s.scope = scope
	}
}

// WithTimeouts bounds connect, row fetch and close.
func WithTimeouts(t Timeouts) Option {
	return func(s *settings) {
		s.timeouts = t
	}
}

// WithRecordOptions sets name resolution for the stream's cursor.
func WithRecordOptions(opts record.Options) Option {
	return func(s *settings) {
		s.record = opts
	}
}

// WithLogger sets the logger used for stream diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExpectedSize pre-allocates the slice built by ReadAll.
func WithExpectedSize(size int) Option {
	return func(s *settings) {
		s.expectedSize = size
	}
}
