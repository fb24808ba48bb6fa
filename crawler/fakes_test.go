package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scipunch/stocknews/fetcher/types"
)

var errBlocked = &types.BlockError{URL: "https://example.com", Status: 403}

// events is shared by fakes that need to assert call order
type events []string

func (e *events) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

type fakeProvider struct {
	listings map[string][]types.Listing
	// Scripted errors popped per call; an exhausted script means success
	listErrs  map[string][]error
	fetchErrs map[string][]error

	listCalls  []string
	fetchCalls []string
	log        *events
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		listings:  map[string][]types.Listing{},
		listErrs:  map[string][]error{},
		fetchErrs: map[string][]error{},
	}
}

func (p *fakeProvider) withListing(ticker string, ids ...string) *fakeProvider {
	for _, id := range ids {
		p.listings[ticker] = append(p.listings[ticker], types.Listing{ID: id, Title: "title " + id})
	}
	return p
}

func (p *fakeProvider) Name() string        { return "Fake" }
func (p *fakeProvider) DisplayName() string { return "Fake Source" }

func (p *fakeProvider) TickerDelay() time.Duration { return 500 * time.Millisecond }
func (p *fakeProvider) CheckDelay() time.Duration  { return 100 * time.Millisecond }

func (p *fakeProvider) ListIDs(ctx context.Context, ticker string) ([]types.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.listCalls = append(p.listCalls, ticker)
	if p.log != nil {
		p.log.add("list %s", ticker)
	}
	if err := pop(p.listErrs, ticker); err != nil {
		return nil, err
	}
	return p.listings[ticker], nil
}

func (p *fakeProvider) FetchContent(ctx context.Context, listing types.Listing) (types.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return types.NewsItem{}, err
	}
	p.fetchCalls = append(p.fetchCalls, listing.ID)
	if err := pop(p.fetchErrs, listing.ID); err != nil {
		return types.NewsItem{}, err
	}
	return types.NewsItem{
		ID:          listing.ID,
		PublishDate: "2024-02-01",
		Title:       listing.Title,
		Content:     "content " + listing.ID,
		Source:      p.Name(),
	}, nil
}

func pop(script map[string][]error, key string) error {
	errs := script[key]
	if len(errs) == 0 {
		return nil
	}
	script[key] = errs[1:]
	return errs[0]
}

func repeat(err error, n int) []error {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = err
	}
	return errs
}

type fakeStore struct {
	items     map[string]map[string]types.NewsItem
	existsErr error
	inserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]map[string]types.NewsItem{}}
}

func (s *fakeStore) seed(ns string, ids ...string) *fakeStore {
	for _, id := range ids {
		if s.items[ns] == nil {
			s.items[ns] = map[string]types.NewsItem{}
		}
		s.items[ns][id] = types.NewsItem{ID: id}
	}
	return s
}

func (s *fakeStore) Exists(_ context.Context, ns, id string) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.items[ns][id]
	return ok, nil
}

func (s *fakeStore) Insert(_ context.Context, ns string, item types.NewsItem) error {
	if s.items[ns] == nil {
		s.items[ns] = map[string]types.NewsItem{}
	}
	if _, ok := s.items[ns][item.ID]; ok {
		return nil
	}
	s.items[ns][item.ID] = item
	s.inserts++
	return nil
}

func (s *fakeStore) Count(_ context.Context, ns string) (int64, error) {
	return int64(len(s.items[ns])), nil
}

func (s *fakeStore) Close(context.Context) error { return nil }

type fakeRotator struct {
	starts, stops, restarts int
	startErr, stopErr       error
	log                     *events
}

func (r *fakeRotator) Start(context.Context) error {
	r.starts++
	if r.log != nil {
		r.log.add("rotator start")
	}
	return r.startErr
}

func (r *fakeRotator) Stop(context.Context) error {
	r.stops++
	if r.log != nil {
		r.log.add("rotator stop")
	}
	return r.stopErr
}

func (r *fakeRotator) Restart(context.Context) error {
	r.restarts++
	if r.log != nil {
		r.log.add("rotator restart")
	}
	return nil
}

type fakeNotifier struct {
	texts []string
	err   error
	log   *events
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.texts = append(n.texts, text)
	if n.log != nil {
		n.log.add("notify")
	}
	return n.err
}

type sleepRecorder struct {
	calls []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.calls = append(s.calls, d)
	return ctx.Err()
}

var errStoreDown = errors.New("store down")
