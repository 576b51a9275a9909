// Package storage holds the string-valued key-value media that mirror the
// budget item store between runs.
package storage

import (
	"context"
	"errors"
)

// Keys under which the budget item state is persisted.
const (
	KeyBudgetItems = "budgetItems"
	KeyLastID      = "lastID"
)

// ErrClosed is returned by media that have been shut down.
var ErrClosed = errors.New("storage: medium closed")

// KeyValueStore is the persistence medium. Get reports found=false for a
// key that was never written; Set overwrites.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Prefixed namespaces every key of an underlying medium, so several
// installations can share one redis database or table.
type Prefixed struct {
	prefix string
	next   KeyValueStore
}

// WithPrefix wraps kv so that keys are stored as prefix+key. An empty prefix
// returns kv unchanged.
func WithPrefix(kv KeyValueStore, prefix string) KeyValueStore {
	if prefix == "" {
		return kv
	}
	return &Prefixed{prefix: prefix, next: kv}
}

// Get implements KeyValueStore.
func (p *Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.next.Get(ctx, p.prefix+key)
}

// Set implements KeyValueStore.
func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	return p.next.Set(ctx, p.prefix+key, value)
}
