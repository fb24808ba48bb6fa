package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrBlocked marks a response that looks like the source rejected us:
	// a non-success status or a payload missing its expected shape.
	ErrBlocked = errors.New("request blocked")
	// ErrContentUnavailable marks a page that loaded fine but carries no
	// article (removed, restricted or otherwise unparsable).
	ErrContentUnavailable = errors.New("content unavailable")
)

// BlockError describes a single block signal
type BlockError struct {
	URL    string
	Status int
	Reason string
}

func (e *BlockError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("blocked at %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("blocked at %s: %s", e.URL, e.Reason)
}

func (e *BlockError) Unwrap() error {
	return ErrBlocked
}

// NewsItem is a single article ready to be persisted
type NewsItem struct {
	ID          string
	PublishDate string
	Title       string
	Content     string
	Source      string
}

// Listing is one candidate item found on a ticker's news listing.
// The remaining fields are optional metadata some providers need to
// fetch or assemble the full item.
type Listing struct {
	ID          string
	Title       string
	Href        string
	PublishDate string
	Content     string
}

// Provider lists and fetches news items from a single source
type Provider interface {
	// Name is the dedup namespace, e.g. "Zacks"
	Name() string
	// DisplayName is used in operator notifications, e.g. "Seeking Alpha"
	DisplayName() string

	ListIDs(ctx context.Context, ticker string) ([]Listing, error)
	FetchContent(ctx context.Context, listing Listing) (NewsItem, error)

	// TickerDelay is the pause between two tickers
	TickerDelay() time.Duration
	// CheckDelay is the pause after an item already present in the store
	CheckDelay() time.Duration
}
