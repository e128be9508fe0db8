// Package store defines the durable snapshot store contract shared by the
// file and Postgres backends.
package store

import (
	"context"

	"github.com/saturnino-fabrica-de-software/presenca/internal/domain"
)

// UpdateFunc mutates a freshly loaded snapshot in place. It returns true
// when the snapshot changed and must be persisted; returning false skips
// the write entirely.
type UpdateFunc func(s *domain.Snapshot) (changed bool, err error)

// Store persists the identity registry and attendance ledger as a single
// snapshot.
type Store interface {
	// Load returns the current snapshot. Loss of durable-state integrity
	// is recovered, not surfaced: a missing or corrupt backing store
	// yields the last-known-good or an empty snapshot.
	Load(ctx context.Context) (*domain.Snapshot, error)

	// Update runs fn over load-mutate-save under the single-writer lock,
	// so concurrent mutations never lose each other's writes.
	Update(ctx context.Context, fn UpdateFunc) error
}
