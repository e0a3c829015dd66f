package stream

import (
	"golang.org/x/exp/slog"
)

// Info identifies the stream an event comes from.
type Info struct {
	Handle    string
	Statement string
	ReadCount uint64
}

// Listener observes a stream. Callbacks run synchronously on the caller's
// goroutine, in registration order. The first callback to return an error
// stops the dispatch; that error is returned to the caller, attached to any
// error already in flight.
type Listener[R any] interface {
	RowRead(info Info, row R) error
	ReadException(info Info, err error) error
	EndOfStream(info Info) error
	CloseResult(info Info, err error) error
}

// Listeners adapts optional functions into a Listener.
type Listeners[R any] struct {
	OnRowRead       func(info Info, row R) error
	OnReadException func(info Info, err error) error
	OnEndOfStream   func(info Info) error
	OnCloseResult   func(info Info, err error) error
}

func (l Listeners[R]) RowRead(info Info, row R) error {
	if l.OnRowRead == nil {
		return nil
	}
	return l.OnRowRead(info, row)
}

func (l Listeners[R]) ReadException(info Info, err error) error {
	if l.OnReadException == nil {
		return nil
	}
	return l.OnReadException(info, err)
}

func (l Listeners[R]) EndOfStream(info Info) error {
	if l.OnEndOfStream == nil {
		return nil
	}
	return l.OnEndOfStream(info)
}

func (l Listeners[R]) CloseResult(info Info, err error) error {
	if l.OnCloseResult == nil {
		return nil
	}
	return l.OnCloseResult(info, err)
}

type logListener[R any] struct {
	log *slog.Logger
}

// LogListener logs every stream event to l.
func LogListener[R any](l *slog.Logger) Listener[R] {
	return logListener[R]{log: l}
}

func (l logListener[R]) RowRead(info Info, row R) error {
	l.log.Debug("row read", "handle", info.Handle, "count", info.ReadCount)
	return nil
}

func (l logListener[R]) ReadException(info Info, err error) error {
	l.log.Warn("read failed", "handle", info.Handle, "sql", info.Statement, "err", err)
	return nil
}

func (l logListener[R]) EndOfStream(info Info) error {
	l.log.Debug("end of stream", "handle", info.Handle, "count", info.ReadCount)
	return nil
}

func (l logListener[R]) CloseResult(info Info, err error) error {
	if err != nil {
		l.log.Warn("result closed with error", "handle", info.Handle, "err", err)
		return nil
	}
	l.log.Debug("result closed", "handle", info.Handle, "count", info.ReadCount)
	return nil
}
