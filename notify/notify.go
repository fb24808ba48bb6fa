// Package notify delivers plain-text operator messages.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Notifier sends a single text message
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Log writes messages to the logger, always available
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, text string) error {
	l.log.Info("notification", zap.String("text", text))
	return nil
}

// Multi fans a message out to every sink. A failing sink does not stop
// the others; failures are logged and joined.
type Multi struct {
	sinks []Notifier
	log   *zap.Logger
}

func NewMulti(log *zap.Logger, sinks ...Notifier) *Multi {
	return &Multi{sinks: sinks, log: log}
}

func (m *Multi) Notify(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, text); err != nil {
			m.log.Warn("notification not delivered", zap.String("sink", fmt.Sprintf("%T", s)), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
