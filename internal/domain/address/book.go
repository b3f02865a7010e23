package address

import (
	"context"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/clientstore"
)

// Book holds the shopper's selected delivery address and whether it should
// be remembered between sessions.
type Book struct {
	store clientstore.Store

	mu       sync.Mutex
	selected string
	save     bool
}

// OpenBook rehydrates the saved address from store. A saved address is
// selected and the save toggle starts enabled.
func OpenBook(ctx context.Context, store clientstore.Store) (*Book, error) {
	var saved string
	ok, err := clientstore.Load(ctx, store, clientstore.KeySavedAddress, &saved)
	if err != nil {
		return nil, errors.Wrap(err, "load saved address")
	}

	b := &Book{store: store}
	if ok && saved != "" {
		b.selected = saved
		b.save = true
	}
	return b, nil
}

// Selected returns the selected address.
func (b *Book) Selected() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected, b.selected != ""
}

// Saving reports whether the save toggle is enabled.
func (b *Book) Saving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.save
}

// Select makes addr the delivery address and persists it when saving is
// enabled.
func (b *Book) Select(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("empty address")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.save {
		if err := clientstore.Save(ctx, b.store, clientstore.KeySavedAddress, addr); err != nil {
			return errors.Wrap(err, "save address")
		}
	}
	b.selected = addr
	return nil
}

// SetSave flips the save toggle. Enabling it persists the selected address;
// disabling it forgets any saved address.
func (b *Book) SetSave(ctx context.Context, save bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if save && b.selected != "" {
		if err := clientstore.Save(ctx, b.store, clientstore.KeySavedAddress, b.selected); err != nil {
			return errors.Wrap(err, "save address")
		}
	} else if err := b.store.Remove(ctx, clientstore.KeySavedAddress); err != nil {
		return errors.Wrap(err, "forget address")
	}
	b.save = save
	return nil
}
