package crawler

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/rotator"
)

// ErrBudgetExceeded ends the whole run: too many consecutive blocks on
// one ticker usually means the rotator itself needs attention
var ErrBudgetExceeded = errors.New("block budget exceeded")

// State is where a ticker's session stands in block recovery
type State int

const (
	// Normal means the last response was usable
	Normal State = iota
	// Blocked means a block signal is being recovered from
	Blocked
	// Escalated is terminal, the ticker ran out of block budget
	Escalated
)

func (s State) String() string {
	switch s {
	case Normal:
		return "normal"
	case Blocked:
		return "blocked"
	case Escalated:
		return "escalated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// EscalationError is returned once a ticker exhausts its block budget
type EscalationError struct {
	Ticker string
	Blocks int
	Last   error
}

func (e *EscalationError) Error() string {
	return fmt.Sprintf("%d consecutive blocks on %s: %v", e.Blocks, e.Ticker, e.Last)
}

func (e *EscalationError) Unwrap() []error {
	return []error{ErrBudgetExceeded, e.Last}
}

// Session is the per-ticker block/recovery state machine. It is
// created fresh for every ticker so the block count never carries over.
type Session struct {
	ticker    string
	threshold int
	rotator   rotator.Rotator
	log       *zap.Logger

	state    State
	blocks   int
	restarts int
	inserted int
}

func NewSession(ticker string, threshold int, r rotator.Rotator, log *zap.Logger) *Session {
	return &Session{
		ticker:    ticker,
		threshold: threshold,
		rotator:   r,
		log:       log.With(zap.String("ticker", ticker)),
	}
}

func (s *Session) Ticker() string { return s.ticker }
func (s *Session) State() State   { return s.state }

// Blocks is the number of consecutive block signals since the last
// successful response
func (s *Session) Blocks() int { return s.blocks }

// Restarts is how many rotator restarts this ticker needed
func (s *Session) Restarts() int { return s.restarts }

// Inserted is how many items this ticker added to the store
func (s *Session) Inserted() int { return s.inserted }

// Do runs op until it gets past a block signal. Each block costs one
// unit of budget and one rotator restart; once the count exceeds the
// threshold an *EscalationError is returned and op is not retried.
// Errors other than block signals are returned untouched.
func (s *Session) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	if s.state == Escalated {
		return &EscalationError{Ticker: s.ticker, Blocks: s.blocks, Last: ErrBudgetExceeded}
	}

	for {
		err := fn(ctx)
		switch {
		case err == nil, errors.Is(err, types.ErrContentUnavailable):
			// The site answered normally either way
			s.reset()
			return err
		case !errors.Is(err, types.ErrBlocked):
			return err
		}

		s.blocks++
		s.state = Blocked
		s.log.Warn("block signal",
			zap.String("op", op),
			zap.Int("blocks", s.blocks),
			zap.Int("threshold", s.threshold),
			zap.Error(err))

		if s.blocks > s.threshold {
			s.state = Escalated
			return &EscalationError{Ticker: s.ticker, Blocks: s.blocks, Last: err}
		}

		if err := s.rotator.Restart(ctx); err != nil {
			return fmt.Errorf("rotator restart after block on %s: %w", s.ticker, err)
		}
		s.restarts++
		s.state = Normal
	}
}

func (s *Session) reset() {
	s.blocks = 0
	s.state = Normal
}

// call is Do for operations that return a value
func call[T any](ctx context.Context, s *Session, op string, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := s.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
