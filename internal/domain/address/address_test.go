package address

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/clientstore"
)

// --- Mock implementations ---

// blockingLookup blocks every search until release is closed or the
// search context is cancelled.
type blockingLookup struct {
	calls   atomic.Int32
	started chan string
	release chan struct{}
}

func newBlockingLookup() *blockingLookup {
	return &blockingLookup{
		started: make(chan string, 8),
		release: make(chan struct{}),
	}
}

func (l *blockingLookup) Search(ctx context.Context, query string) ([]Address, error) {
	l.calls.Add(1)
	l.started <- query
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.release:
		return []Address{{ID: 1, Address: query}}, nil
	}
}

type failingLookup struct{}

func (failingLookup) Search(context.Context, string) ([]Address, error) {
	return nil, errors.New("upstream unavailable")
}

// --- Tests ---

func TestSimulated(t *testing.T) {
	got, err := NewSimulated(0).Search(context.Background(), "Jean")
	require.NoError(t, err)
	assert.Equal(t, []Address{
		{ID: 1, Address: "Jean, 1 rue des Brawlers, 75001 Paris"},
		{ID: 2, Address: "Jean, 2 avenue Supercell, 69002 Lyon"},
		{ID: 3, Address: "Jean, 3 boulevard des Stars, 33000 Bordeaux"},
	}, got)
}

func TestSimulated_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSimulated(time.Hour).Search(ctx, "Jean")
	require.ErrorIs(t, err, context.Canceled)
}

func TestSearcher_ShortQuery(t *testing.T) {
	lookup := newBlockingLookup()
	s := NewSearcher(lookup, 0)

	for _, q := range []string{"", "ab", "  ab  ", "éé"} {
		got, err := s.Search(context.Background(), q)
		require.NoError(t, err, q)
		assert.Empty(t, got, q)
	}
	assert.Zero(t, lookup.calls.Load())
}

func TestSearcher_Result(t *testing.T) {
	s := NewSearcher(NewSimulated(0), 0)
	got, err := s.Search(context.Background(), "Lyon")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestSearcher_LookupFailureIsEmpty(t *testing.T) {
	s := NewSearcher(failingLookup{}, 0)
	got, err := s.Search(context.Background(), "Paris")
	require.Error(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearcher_NewerCallSupersedesInFlight(t *testing.T) {
	lookup := newBlockingLookup()
	s := NewSearcher(lookup, 0)

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "Par")
		firstErr <- err
	}()
	require.Equal(t, "Par", <-lookup.started)

	type result struct {
		got []Address
		err error
	}
	second := make(chan result, 1)
	go func() {
		got, err := s.Search(context.Background(), "Paris")
		second <- result{got: got, err: err}
	}()
	require.Equal(t, "Paris", <-lookup.started)
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)

	close(lookup.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, []Address{{ID: 1, Address: "Paris"}}, res.got)
}

func TestSearcher_DebounceCoalesces(t *testing.T) {
	lookup := newBlockingLookup()
	close(lookup.release)
	s := NewSearcher(lookup, 200*time.Millisecond)

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "Bor")
		firstErr <- err
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.seq == 1
	}, time.Second, time.Millisecond)

	got, err := s.Search(context.Background(), "Bordeaux")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Bordeaux", got[0].Address)

	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Equal(t, int32(1), lookup.calls.Load())
}

func TestSearcher_ShortQueryCancelsPending(t *testing.T) {
	lookup := newBlockingLookup()
	s := NewSearcher(lookup, time.Hour)

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Search(context.Background(), "Lille")
		firstErr <- err
	}()
	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.seq == 1
	}, time.Second, time.Millisecond)

	_, err := s.Search(context.Background(), "Li")
	require.NoError(t, err)
	assert.ErrorIs(t, <-firstErr, ErrSuperseded)
	assert.Zero(t, lookup.calls.Load())
}

func TestSearcher_CallerCancellation(t *testing.T) {
	s := NewSearcher(newBlockingLookup(), time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Search(ctx, "Nantes")
	require.ErrorIs(t, err, context.Canceled)
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	store := clientstore.NewMemory()

	b, err := OpenBook(ctx, store)
	require.NoError(t, err)
	_, ok := b.Selected()
	assert.False(t, ok)
	assert.False(t, b.Saving())

	// Selecting without saving does not persist.
	require.NoError(t, b.Select(ctx, "1 rue des Brawlers"))
	_, present, err := store.Get(ctx, clientstore.KeySavedAddress)
	require.NoError(t, err)
	assert.False(t, present)

	// Enabling the toggle persists the current selection.
	require.NoError(t, b.SetSave(ctx, true))
	var saved string
	present, err = clientstore.Load(ctx, store, clientstore.KeySavedAddress, &saved)
	require.NoError(t, err)
	require.True(t, present)
	assert.Equal(t, "1 rue des Brawlers", saved)

	// While saving, new selections are persisted.
	require.NoError(t, b.Select(ctx, "2 avenue Supercell"))
	reopened, err := OpenBook(ctx, store)
	require.NoError(t, err)
	addr, ok := reopened.Selected()
	require.True(t, ok)
	assert.Equal(t, "2 avenue Supercell", addr)
	assert.True(t, reopened.Saving())

	// Disabling forgets the saved address but keeps the selection.
	require.NoError(t, b.SetSave(ctx, false))
	_, present, err = store.Get(ctx, clientstore.KeySavedAddress)
	require.NoError(t, err)
	assert.False(t, present)
	addr, _ = b.Selected()
	assert.Equal(t, "2 avenue Supercell", addr)

	require.Error(t, b.Select(ctx, ""))
}
