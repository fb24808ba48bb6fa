// Package tickers resolves the ordered list of symbols a run crawls.
package tickers

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/scipunch/stocknews/config"
)

// Source yields symbols in the order they should be crawled
type Source interface {
	Tickers(ctx context.Context) ([]string, error)
}

// Static is a fixed list from the config
type Static []string

func (s Static) Tickers(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// File reads one symbol per line; blank lines and # comments are skipped
type File string

func (f File) Tickers(context.Context) ([]string, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		return nil, fmt.Errorf("failed to open ticker file: %w", err)
	}
	defer fh.Close()

	var symbols []string
	sc := bufio.NewScanner(fh)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols = append(symbols, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ticker file: %w", err)
	}
	return symbols, nil
}

// HoldingsLister resolves fund constituents
type HoldingsLister interface {
	Holdings(ctx context.Context, etf string) ([]string, error)
}

// ETF lists the holdings of a fund
type ETF struct {
	Symbol string
	Lister HoldingsLister
}

func (e ETF) Tickers(ctx context.Context) ([]string, error) {
	return e.Lister.Holdings(ctx, e.Symbol)
}

// Filter trims a resolved list without ever reordering it
type Filter struct {
	exclude []*regexp.Regexp
	skip    int
	limit   int
}

// NewFilter compiles the exclude patterns of cfg
func NewFilter(cfg config.TickersConfig, log *zap.Logger) *Filter {
	f := &Filter{skip: cfg.Skip, limit: cfg.Limit}
	for _, pattern := range cfg.Exclude {
		re, err := regexp.Compile(pattern)
		if err != nil {
			log.Warn("invalid ticker exclude pattern", zap.String("pattern", pattern), zap.Error(err))
			continue
		}
		f.exclude = append(f.exclude, re)
	}
	return f
}

// Apply trims whitespace, drops duplicates and excluded symbols, then
// applies skip and limit. Symbols are passed on exactly as listed.
func (f *Filter) Apply(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))

	for _, s := range symbols {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || f.excluded(s) {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}

	if f.skip > 0 {
		if f.skip >= len(out) {
			return []string{}
		}
		out = out[f.skip:]
	}
	if f.limit > 0 && f.limit < len(out) {
		out = out[:f.limit]
	}
	return out
}

func (f *Filter) excluded(symbol string) bool {
	for _, re := range f.exclude {
		if re.MatchString(symbol) {
			return true
		}
	}
	return false
}

// NewSource builds the configured source
func NewSource(cfg config.TickersConfig, holdings HoldingsLister) (Source, error) {
	switch cfg.Source {
	case config.StaticTickers:
		return Static(cfg.Symbols), nil
	case config.FileTickers:
		return File(cfg.File), nil
	case config.ETFTickers:
		return ETF{Symbol: cfg.ETF, Lister: holdings}, nil
	default:
		return nil, fmt.Errorf("unknown ticker source: %s", cfg.Source)
	}
}

// Resolve loads the list from src and applies the filter
func Resolve(ctx context.Context, src Source, f *Filter) ([]string, error) {
	symbols, err := src.Tickers(ctx)
	if err != nil {
		return nil, err
	}
	return f.Apply(symbols), nil
}
