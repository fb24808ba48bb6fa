// Package crawler drives one ingestion run: tickers in order, one
// session per ticker, a single notification at the end.
package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
	"github.com/scipunch/stocknews/fetcher/types"
	"github.com/scipunch/stocknews/notify"
	"github.com/scipunch/stocknews/pace"
	"github.com/scipunch/stocknews/rotator"
	"github.com/scipunch/stocknews/store"
)

// shutdownTimeout bounds rotator stop and notification delivery once
// the run context may already be cancelled
const shutdownTimeout = time.Minute

// RunState lives for one Execute call
type RunState struct {
	RunID            string
	StartTime        time.Time
	ProcessedTickers int
	TotalInserted    int
	CurrentTicker    string
}

// RunError is the terminal failure of a run
type RunError struct {
	State RunState
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed on ticker %q after %d tickers: %v",
		e.State.RunID, e.State.CurrentTicker, e.State.ProcessedTickers, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type Options struct {
	Provider types.Provider
	Store    store.Store
	Rotator  rotator.Rotator
	Notifier notify.Notifier
	// BlockThreshold is the number of consecutive blocks a ticker may
	// hit; one more escalates
	BlockThreshold int
	Sleep          pace.SleepFunc
	Now            func() time.Time
	Logger         *zap.Logger
}

type Orchestrator struct {
	provider  types.Provider
	ingester  *Ingester
	rotator   rotator.Rotator
	notifier  notify.Notifier
	threshold int
	sleep     pace.SleepFunc
	now       func() time.Time
	log       *zap.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Sleep == nil {
		opts.Sleep = pace.Sleep
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Rotator == nil {
		opts.Rotator = rotator.Noop{}
	}
	if opts.BlockThreshold <= 0 {
		opts.BlockThreshold = config.DefaultBlockThreshold
	}

	return &Orchestrator{
		provider:  opts.Provider,
		ingester:  NewIngester(opts.Provider, opts.Store, opts.Sleep, opts.Logger),
		rotator:   opts.Rotator,
		notifier:  opts.Notifier,
		threshold: opts.BlockThreshold,
		sleep:     opts.Sleep,
		now:       opts.Now,
		log:       opts.Logger,
	}
}

// Execute crawls tickers in order. It returns a *RunError on the first
// unrecovered failure; no further tickers are attempted after that.
// Either way the last thing it does is send exactly one notification.
func (o *Orchestrator) Execute(ctx context.Context, tickers []string) (RunState, error) {
	state := RunState{RunID: uuid.NewString(), StartTime: o.now()}
	log := o.log.With(zap.String("run_id", state.RunID), zap.String("provider", o.provider.Name()))
	log.Info("run started", zap.Int("tickers", len(tickers)))

	if err := o.rotator.Start(ctx); err != nil {
		return state, o.fail(ctx, log, state, fmt.Errorf("start rotator: %w", err))
	}

	for i, ticker := range tickers {
		state.CurrentTicker = ticker
		log.Info("ticker started", zap.String("ticker", ticker), zap.Int("index", i+1))

		session := NewSession(ticker, o.threshold, o.rotator, log)
		_, err := o.ingester.Ingest(ctx, session)
		state.TotalInserted += session.Inserted()
		if err != nil {
			return state, o.fail(ctx, log, state, err)
		}
		state.ProcessedTickers++
		log.Info("ticker done",
			zap.String("ticker", ticker),
			zap.Int("inserted", session.Inserted()),
			zap.Int("restarts", session.Restarts()))

		if i < len(tickers)-1 {
			if err := o.sleep(ctx, o.provider.TickerDelay()); err != nil {
				return state, o.fail(ctx, log, state, err)
			}
		}
	}

	// Every ticker is stored at this point, a stop failure does not
	// change the outcome of the run
	if err := o.rotator.Stop(ctx); err != nil {
		log.Warn("failed to stop rotator", zap.Error(err))
	}

	log.Info("run finished",
		zap.Int("tickers", state.ProcessedTickers),
		zap.Int("inserted", state.TotalInserted))
	o.notify(ctx, log, CompletionMessage(o.provider.DisplayName(), state, o.now()))
	return state, nil
}

// fail shuts down the rotator, reports and wraps err
func (o *Orchestrator) fail(ctx context.Context, log *zap.Logger, state RunState, err error) error {
	log.Error("run failed",
		zap.String("ticker", state.CurrentTicker),
		zap.Int("processed", state.ProcessedTickers),
		zap.Error(err))

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if stopErr := o.rotator.Stop(stopCtx); stopErr != nil {
		log.Warn("failed to stop rotator", zap.Error(stopErr))
	}

	o.notify(ctx, log, FailureMessage(o.provider.DisplayName(), state))
	return &RunError{State: state, Err: err}
}

// notify is fire-and-forget, a delivery failure is only logged
func (o *Orchestrator) notify(ctx context.Context, log *zap.Logger, text string) {
	if o.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := o.notifier.Notify(ctx, text); err != nil {
		log.Warn("notification failed", zap.Error(err))
	}
}
