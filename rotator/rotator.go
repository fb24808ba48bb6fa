// Package rotator drives the external tool that changes our apparent
// network identity (a VPN connection in practice).
package rotator

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/pace"
)

// Rotator changes the network identity. Restart is stop, settle, start.
type Rotator interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error
}

// Runner executes a command line, exec.CommandContext in production
type Runner func(ctx context.Context, argv []string) ([]byte, error)

// ExecRunner runs argv and returns its combined output
func ExecRunner(ctx context.Context, argv []string) ([]byte, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty command")
	}
	return exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
}

type Config struct {
	StartCommand []string
	StopCommand  []string
	// Settle delays give the tunnel time to come up or down
	StartSettle time.Duration
	StopSettle  time.Duration
}

// Command rotates identity by running external start/stop commands.
// Only one operation runs at a time.
type Command struct {
	cfg   Config
	run   Runner
	sleep pace.SleepFunc
	log   *zap.Logger

	mu sync.Mutex
}

var _ Rotator = (*Command)(nil)

func NewCommand(cfg Config, run Runner, sleep pace.SleepFunc, log *zap.Logger) *Command {
	if run == nil {
		run = ExecRunner
	}
	if sleep == nil {
		sleep = pace.Sleep
	}
	return &Command{cfg: cfg, run: run, sleep: sleep, log: log}
}

func (c *Command) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start(ctx)
}

func (c *Command) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stop(ctx)
}

func (c *Command) Restart(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Info("rotating network identity")
	if err := c.stop(ctx); err != nil {
		return err
	}
	return c.start(ctx)
}

func (c *Command) start(ctx context.Context) error {
	if err := c.exec(ctx, "start", c.cfg.StartCommand); err != nil {
		return err
	}
	return c.sleep(ctx, c.cfg.StartSettle)
}

func (c *Command) stop(ctx context.Context) error {
	if err := c.exec(ctx, "stop", c.cfg.StopCommand); err != nil {
		return err
	}
	return c.sleep(ctx, c.cfg.StopSettle)
}

func (c *Command) exec(ctx context.Context, op string, argv []string) error {
	out, err := c.run(ctx, argv)
	if err != nil {
		return fmt.Errorf("rotator %s (%s): %w: %s", op, strings.Join(argv, " "), err, strings.TrimSpace(string(out)))
	}
	c.log.Debug("rotator command finished", zap.String("op", op), zap.Strings("argv", argv))
	return nil
}

// Noop is used when no rotation mechanism is configured
type Noop struct{}

func (Noop) Start(context.Context) error   { return nil }
func (Noop) Stop(context.Context) error    { return nil }
func (Noop) Restart(context.Context) error { return nil }
