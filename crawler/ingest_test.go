package crawler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scipunch/stocknews/fetcher/types"
)

func TestIngest_OnlyNewItemsAreFetched(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "111", "222")
	st := newFakeStore().seed("Fake", "111")
	sleeper := &sleepRecorder{}
	in := NewIngester(provider, st, sleeper.sleep, zap.NewNop())

	s := NewSession("ABC", 10, &fakeRotator{}, zap.NewNop())
	n, err := in.Ingest(context.Background(), s)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"222"}, provider.fetchCalls)
	assert.Equal(t, 1, st.inserts)
	assert.Contains(t, st.items["Fake"], "222")
	assert.Equal(t, []time.Duration{100 * time.Millisecond}, sleeper.calls, "existing item is paced")
}

func TestIngest_BlockThenRecover(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "333")
	provider.listErrs["ABC"] = []error{errBlocked}
	st := newFakeStore()
	rot := &fakeRotator{}
	in := NewIngester(provider, st, sleepNoop, zap.NewNop())

	s := NewSession("ABC", 10, rot, zap.NewNop())
	n, err := in.Ingest(context.Background(), s)

	require.NoError(t, err)
	assert.Equal(t, 1, rot.restarts)
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, s.Blocks())
	assert.Equal(t, []string{"ABC", "ABC"}, provider.listCalls)
}

func TestIngest_FetchBlockRetriesSameItem(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "111", "222")
	provider.fetchErrs["111"] = []error{errBlocked, errBlocked}
	rot := &fakeRotator{}
	in := NewIngester(provider, newFakeStore(), sleepNoop, zap.NewNop())

	n, err := in.Ingest(context.Background(), NewSession("ABC", 10, rot, zap.NewNop()))

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"111", "111", "111", "222"}, provider.fetchCalls)
	assert.Equal(t, 2, rot.restarts)
}

func TestIngest_ContentUnavailableIsSkipped(t *testing.T) {
	provider := newFakeProvider()
	var ids []string
	for i := 0; i < 50; i++ {
		id := fmt.Sprintf("%d", 1000+i)
		ids = append(ids, id)
		provider.fetchErrs[id] = []error{fmt.Errorf("removed: %w", types.ErrContentUnavailable)}
	}
	provider.withListing("ABC", ids...)
	rot := &fakeRotator{}
	st := newFakeStore()
	in := NewIngester(provider, st, sleepNoop, zap.NewNop())

	s := NewSession("ABC", 10, rot, zap.NewNop())
	n, err := in.Ingest(context.Background(), s)

	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, ids, provider.fetchCalls, "each id fetched once, in listing order")
	assert.Equal(t, 0, rot.restarts)
	assert.Equal(t, Normal, s.State())
}

func TestIngest_Idempotent(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "111", "222", "333")
	st := newFakeStore()
	in := NewIngester(provider, st, sleepNoop, zap.NewNop())

	n, err := in.Ingest(context.Background(), NewSession("ABC", 10, &fakeRotator{}, zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	provider.fetchCalls = nil
	n, err = in.Ingest(context.Background(), NewSession("ABC", 10, &fakeRotator{}, zap.NewNop()))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, provider.fetchCalls)
	assert.Equal(t, 3, st.inserts)
}

func TestIngest_EscalationKeepsPartialCount(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "111", "222")
	provider.fetchErrs["222"] = repeat(errBlocked, 11)
	in := NewIngester(provider, newFakeStore(), sleepNoop, zap.NewNop())

	n, err := in.Ingest(context.Background(), NewSession("ABC", 10, &fakeRotator{}, zap.NewNop()))

	require.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, 1, n)
}

func TestIngest_StoreErrorPropagates(t *testing.T) {
	provider := newFakeProvider().withListing("ABC", "111")
	st := newFakeStore()
	st.existsErr = errStoreDown
	in := NewIngester(provider, st, sleepNoop, zap.NewNop())

	_, err := in.Ingest(context.Background(), NewSession("ABC", 10, &fakeRotator{}, zap.NewNop()))

	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, provider.fetchCalls)
}

func sleepNoop(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
