package timecache

import (
	"context"
	"testing"

	dexterm "github.com/featherdex/dexterm/pkg"
)

type entry struct {
	At    int64
	Value string
}

type fetchCall struct {
	Start, End int64
}

// rangeSource serves one entry per time unit in the requested range and
// records every fetch it receives.
type rangeSource struct {
	calls []fetchCall
}

func (s *rangeSource) fetch(ctx context.Context, start, end int64) ([]entry, error) {
	s.calls = append(s.calls, fetchCall{start, end})
	var out []entry
	for t := start; t <= end; t++ {
		out = append(out, entry{At: t, Value: "v"})
	}
	return out, nil
}

func newEntryCache(src *rangeSource) *Cache[entry] {
	return New(src.fetch, func(e entry) int64 { return e.At })
}

func TestRefreshFetchesOnlyTheDelta(t *testing.T) {
	src := &rangeSource{}
	c := newEntryCache(src)
	ctx := context.Background()

	got, err := c.Refresh(ctx, 0, 100, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if len(got) != 101 {
		t.Fatalf("first refresh returned %d entries, want 101", len(got))
	}
	if len(src.calls) != 1 || src.calls[0] != (fetchCall{0, 100}) {
		t.Fatalf("calls = %v, want one full fetch", src.calls)
	}

	// widening the end only fetches the uncovered tail
	got, err = c.Refresh(ctx, 50, 150, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if len(src.calls) != 2 || src.calls[1] != (fetchCall{101, 150}) {
		t.Fatalf("calls = %v, want a single delta fetch [101, 150]", src.calls)
	}
	if len(got) != 101 {
		t.Errorf("got %d entries for [50, 150], want 101", len(got))
	}
	if got[0].At != 50 || got[len(got)-1].At != 150 {
		t.Errorf("range served [%d, %d], want [50, 150]", got[0].At, got[len(got)-1].At)
	}

	start, end, ok := c.Covered()
	if !ok || start != 50 || end != 150 {
		t.Errorf("covered = [%d, %d] ok=%v", start, end, ok)
	}
}

func TestRefreshWidensStart(t *testing.T) {
	src := &rangeSource{}
	c := newEntryCache(src)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, 100, 200, nil); err != nil {
		t.Fatal("Refresh:", err)
	}
	got, err := c.Refresh(ctx, 20, 200, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if len(src.calls) != 2 || src.calls[1] != (fetchCall{20, 99}) {
		t.Fatalf("calls = %v, want a single head fetch [20, 99]", src.calls)
	}
	if got[0].At != 20 || got[len(got)-1].At != 200 {
		t.Errorf("range served [%d, %d]", got[0].At, got[len(got)-1].At)
	}
	// entries must stay sorted after prepending the head delta
	for i := 1; i < len(got); i++ {
		if got[i].At < got[i-1].At {
			t.Fatalf("entries out of order at index %d", i)
		}
	}
}

func TestRefreshFullyCachedNeedsNoFetch(t *testing.T) {
	src := &rangeSource{}
	c := newEntryCache(src)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, 0, 100, nil); err != nil {
		t.Fatal("Refresh:", err)
	}
	got, err := c.Refresh(ctx, 10, 90, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if len(src.calls) != 1 {
		t.Errorf("calls = %v, narrowing must not refetch", src.calls)
	}
	if len(got) != 81 {
		t.Errorf("got %d entries for [10, 90], want 81", len(got))
	}
}

func TestRefreshPrunesAndRefetches(t *testing.T) {
	src := &rangeSource{}
	c := newEntryCache(src)
	ctx := context.Background()

	if _, err := c.Refresh(ctx, 0, 10, nil); err != nil {
		t.Fatal("Refresh:", err)
	}
	// prune everything at or past 5, then widen: the pruned entries
	// inside the still-covered range stay gone
	got, err := c.Refresh(ctx, 0, 12, func(e entry) bool { return e.At >= 5 })
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if len(src.calls) != 2 || src.calls[1] != (fetchCall{11, 12}) {
		t.Fatalf("calls = %v", src.calls)
	}
	if len(got) != 7 { // 0..4 kept, 11..12 fetched
		t.Errorf("got %d entries, want 7", len(got))
	}
}

func TestRefreshInvalidRanges(t *testing.T) {
	c := newEntryCache(&rangeSource{})
	ctx := context.Background()

	if _, err := c.Refresh(ctx, -1, 10, nil); !dexterm.IsInvalidRangeError(err) {
		t.Errorf("negative start: got %v", err)
	}
	if _, err := c.Refresh(ctx, 5, -1, nil); !dexterm.IsInvalidRangeError(err) {
		t.Errorf("negative end: got %v", err)
	}
	if _, err := c.Refresh(ctx, 10, 5, nil); !dexterm.IsInvalidRangeError(err) {
		t.Errorf("inverted range: got %v", err)
	}
}

func TestRefreshReturnsACopy(t *testing.T) {
	src := &rangeSource{}
	c := newEntryCache(src)
	ctx := context.Background()

	got, err := c.Refresh(ctx, 0, 5, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	got[0].Value = "mutated"

	again, err := c.Refresh(ctx, 0, 5, nil)
	if err != nil {
		t.Fatal("Refresh:", err)
	}
	if again[0].Value != "v" {
		t.Error("caller mutation leaked into the cache")
	}
}
