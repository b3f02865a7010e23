// Package address provides delivery address lookup and the shopper's
// selected address.
package address

import (
	"context"
	"fmt"
	"time"
)

// DefaultLatency is the response delay of the simulated lookup.
const DefaultLatency = 300 * time.Millisecond

// Address is a lookup suggestion.
type Address struct {
	ID      int    `json:"id"`
	Address string `json:"address"`
}

// Lookup resolves free-text queries to address suggestions.
type Lookup interface {
	Search(ctx context.Context, query string) ([]Address, error)
}

// Simulated is a stand-in geocoder. It answers every query with three
// addresses derived from the query after a fixed latency.
type Simulated struct {
	Latency time.Duration
}

// NewSimulated creates a Simulated lookup. A non-positive latency answers
// immediately.
func NewSimulated(latency time.Duration) *Simulated {
	return &Simulated{Latency: latency}
}

// Search implements Lookup.
func (s *Simulated) Search(ctx context.Context, query string) ([]Address, error) {
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	}

	return []Address{
		{ID: 1, Address: fmt.Sprintf("%s, 1 rue des Brawlers, 75001 Paris", query)},
		{ID: 2, Address: fmt.Sprintf("%s, 2 avenue Supercell, 69002 Lyon", query)},
		{ID: 3, Address: fmt.Sprintf("%s, 3 boulevard des Stars, 33000 Bordeaux", query)},
	}, nil
}
