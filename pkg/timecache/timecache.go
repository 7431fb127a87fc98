package timecache

import (
	"context"
	"sort"
	"sync"

	dexterm "github.com/featherdex/dexterm/pkg"
)

// FetchFunc loads entries whose time key lies in [start, end] from the
// backing source, both bounds inclusive.
type FetchFunc[T any] func(ctx context.Context, start, end int64) ([]T, error)

// Cache is an expanding range cache over time-ordered data: it serves
// previously fetched entries and only fetches the delta when the
// requested range widens. It is not an LRU; the covered range only
// grows, matching "show me history up to the current tip" access
// patterns. One refresh runs at a time per cache; concurrent callers
// queue on the mutex.
type Cache[T any] struct {
	fetch   FetchFunc[T]
	timeKey func(T) int64

	mu      sync.Mutex
	data    []T // sorted ascending by time key, all within [start, end]
	start   int64
	end     int64
	covered bool
}

func New[T any](fetch FetchFunc[T], timeKey func(T) int64) *Cache[T] {
	return &Cache[T]{fetch: fetch, timeKey: timeKey}
}

// Refresh returns all entries in [start, end], fetching only the parts
// of the range not already covered. Existing entries outside the
// requested range, or for which prune returns true, are dropped. prune
// may be nil.
func (c *Cache[T]) Refresh(ctx context.Context, start, end int64, prune func(T) bool) ([]T, error) {
	if start < 0 || end < 0 {
		return nil, dexterm.NewErr(dexterm.InvalidRange, "range bounds must be non-negative: [%d, %d]", start, end)
	}
	if start > end {
		return nil, dexterm.NewErr(dexterm.InvalidRange, "range start %d after end %d", start, end)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.data[:0]
	for _, item := range c.data {
		k := c.timeKey(item)
		if k < start || k > end {
			continue
		}
		if prune != nil && prune(item) {
			continue
		}
		kept = append(kept, item)
	}
	c.data = kept

	if !c.covered {
		fetched, err := c.fetch(ctx, start, end)
		if err != nil {
			return nil, err
		}
		c.data = append(c.data, fetched...)
	} else {
		if start < c.start {
			hi := end
			if c.start-1 < hi {
				hi = c.start - 1
			}
			fetched, err := c.fetch(ctx, start, hi)
			if err != nil {
				return nil, err
			}
			c.data = append(fetched, c.data...)
		}
		if end > c.end {
			lo := c.end + 1
			if start > lo {
				lo = start
			}
			fetched, err := c.fetch(ctx, lo, end)
			if err != nil {
				return nil, err
			}
			c.data = append(c.data, fetched...)
		}
	}

	sort.SliceStable(c.data, func(i, j int) bool {
		return c.timeKey(c.data[i]) < c.timeKey(c.data[j])
	})
	c.start, c.end, c.covered = start, end, true

	out := make([]T, len(c.data))
	copy(out, c.data)
	return out, nil
}

// Covered returns the currently covered range; ok is false before the
// first successful refresh.
func (c *Cache[T]) Covered() (start, end int64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.start, c.end, c.covered
}
