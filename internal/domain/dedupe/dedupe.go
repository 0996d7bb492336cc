// Package dedupe remembers idempotency keys of applied mutations so a retried
// request is answered without being applied twice.
package dedupe

import (
	"container/list"
	"context"
	"strings"
	"sync"
)

// Entry is what a deduper knows about a recorded key.
type Entry struct {
	// Done is false while the request that recorded the key is still running.
	Done bool
	// Result is the stored response of the completed request.
	Result []byte
}

// Deduper records idempotency keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded, returning its
	// entry, and records it as in flight if not. Check and record happen
	// atomically.
	SeenAndRecord(ctx context.Context, key string) (Entry, bool)

	// Complete marks key as done and stores the response to replay.
	Complete(ctx context.Context, key string, result []byte)

	// Unrecord forgets key so a failed mutation may be resubmitted.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// Key scopes a client idempotency key to the actor, booking and operation.
func Key(actorID, bookingID, op, clientKey string) string {
	return strings.Join([]string{actorID, bookingID, op, clientKey}, "\x1f")
}

type record struct {
	key   string
	entry Entry
}

// inMemoryDeduper keeps keys in insertion order and evicts the oldest once
// maxSize is reached. maxSize <= 0 disables eviction.
type inMemoryDeduper struct {
	mu      sync.Mutex
	maxSize int
	order   *list.List
	seen    map[string]*list.Element
}

// NewInMemoryDeduper creates a bounded in-memory deduper.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50_000,
		order:   list.New(),
		seen:    make(map[string]*list.Element),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) (Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		return el.Value.(*record).entry, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(*record).key)
	}
	d.seen[key] = d.order.PushBack(&record{key: key})
	return Entry{}, false
}

// Complete is a no-op for keys that were never recorded or already evicted.
func (d *inMemoryDeduper) Complete(_ context.Context, key string, result []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		el.Value.(*record).entry = Entry{Done: true, Result: append([]byte(nil), result...)}
	}
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
