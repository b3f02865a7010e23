// Package clientstore provides the key-value store that holds a shopper's
// cart, wishlist and saved address between sessions.
//
// Values are raw JSON documents. Writes are last-write-wins: two sessions
// sharing a backend overwrite each other without merging.
package clientstore

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Keys used by the storefront engines.
const (
	KeyCart               = "cart"
	KeyWishlist           = "wishlist"
	KeyWishlistPriorities = "wishlistPriorities"
	KeySavedAddress       = "savedAddress"
)

// Store is a key-value store of JSON documents.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Load decodes the JSON document stored under key into v. It reports whether
// the key was present. A document that fails to decode is treated as absent,
// so a corrupted entry resets to the zero state instead of blocking the shopper.
// The reset is logged at warn level with the logger from ctx.
func Load(ctx context.Context, s Store, key string, v any) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "get %q", key)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		zctx.From(ctx).Warn("Discarding corrupt stored value",
			zap.String("key", key),
			zap.Int("bytes", len(raw)),
			zap.Error(err),
		)
		return false, nil
	}
	return true, nil
}

// Save encodes v as JSON and stores it under key.
func Save(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %q", key)
	}
	if err := s.Set(ctx, key, raw); err != nil {
		return errors.Wrapf(err, "set %q", key)
	}
	return nil
}
