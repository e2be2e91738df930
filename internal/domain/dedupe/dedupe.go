// Package dedupe tracks identifiers that have already been claimed.
//
// It backs two things: first-occurrence-wins candidate de-duplication during
// ingestion, and Idempotency-Key tracking for asynchronous run submissions.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

// Deduper records seen identifiers.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Claim records id with value unless id is already held. It returns the
	// value stored by the first claim and whether id was already held.
	Claim(ctx context.Context, id, value string) (string, bool)

	// Unrecord forgets id so that a later SeenAndRecord claims it again.
	// Used when a submission was recorded but could not be accepted.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// entry is one recorded id and the value it was claimed with.
type entry struct {
	key   string
	value string
}

// inMemoryDeduper keeps ids in a map plus an insertion-ordered list.
// When bounded, the oldest id is evicted first.
type inMemoryDeduper struct {
	mu       sync.Mutex
	seen     map[string]*list.Element
	order    *list.List
	maxSize  int // <= 0 means unbounded
	foldCase bool
}

// NewInMemoryDeduper creates a new in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 10_000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) key(id string) string {
	if d.foldCase {
		return strings.ToLower(id)
	}
	return id
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	_, seen := d.Claim(ctx, id, "")
	return seen
}

// Claim implements Deduper.
func (d *inMemoryDeduper) Claim(_ context.Context, id, value string) (string, bool) {
	k := d.key(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[k]; ok {
		return el.Value.(entry).value, true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		if oldest := d.order.Front(); oldest != nil {
			delete(d.seen, d.order.Remove(oldest).(entry).key)
		}
	}
	d.seen[k] = d.order.PushBack(entry{key: k, value: value})
	return "", false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	k := d.key(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[k]; ok {
		d.order.Remove(el)
		delete(d.seen, k)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
