package address

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
)

// Searcher defaults.
const (
	MinQueryLength  = 3
	DefaultDebounce = 300 * time.Millisecond
)

// ErrSuperseded is returned by a search that was replaced by a newer one
// before its result could be applied.
var ErrSuperseded = errors.New("address search superseded")

// Searcher debounces address lookups for a single input field. Each call
// cancels the one before it, and only the most recent call returns results.
type Searcher struct {
	lookup   Lookup
	debounce time.Duration

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewSearcher creates a Searcher over lookup. A non-positive debounce
// disables the quiet period.
func NewSearcher(lookup Lookup, debounce time.Duration) *Searcher {
	return &Searcher{lookup: lookup, debounce: debounce}
}

// Search waits for the debounce period and then queries the lookup.
//
// Queries shorter than MinQueryLength return no suggestions without a
// lookup, and also cancel any pending search. When the lookup fails the
// suggestions are empty and the error is returned for reporting.
func (s *Searcher) Search(ctx context.Context, query string) ([]Address, error) {
	query = strings.TrimSpace(query)

	s.mu.Lock()
	s.seq++
	token := s.seq
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		s.mu.Unlock()
		return []Address{}, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	if s.debounce > 0 {
		t := time.NewTimer(s.debounce)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, s.interrupted(ctx, token)
		case <-t.C:
		}
	}

	found, err := s.lookup.Search(ctx, query)
	if !s.latest(token) {
		return nil, ErrSuperseded
	}
	if err != nil {
		return []Address{}, errors.Wrap(err, "search addresses")
	}
	return found, nil
}

func (s *Searcher) latest(token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq == token
}

// interrupted explains why ctx was cancelled before the lookup started.
func (s *Searcher) interrupted(ctx context.Context, token uint64) error {
	if !s.latest(token) {
		return ErrSuperseded
	}
	return ctx.Err()
}
