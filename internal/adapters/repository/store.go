// Package repository persists formation runs.
package repository

import (
	"context"

	"github.com/okian/squadron/internal/domain/model"
)

// Store provides read/write access to formation runs.
type Store interface {
	// Save inserts or replaces the run with the same ID.
	Save(ctx context.Context, run *model.Run) error

	// Get returns the run with id. Returns ErrNotFound if it is unknown
	// or expired.
	Get(ctx context.Context, id string) (*model.Run, error)

	// Count returns the number of runs currently held.
	Count(ctx context.Context) (int, error)

	// Close releases connections held by the store.
	Close() error
}
