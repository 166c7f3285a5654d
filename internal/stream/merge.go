package stream

import (
	"container/heap"
	"iter"

	"github.com/crimson-sun/winfault/internal/model"
)

// Merge combines per-file sequences, each already non-decreasing in timestamp,
// into one globally time-ordered lazy sequence. No input is materialized: the
// merge holds at most one pending record per source.
//
// Records with equal timestamps are emitted in source order (lower index
// first), which makes the merge deterministic run-to-run for identical inputs.
// Like all Seqs, the result is single-pass.
func Merge(sources ...Seq) Seq {
	switch len(sources) {
	case 0:
		return FromSlice(nil)
	case 1:
		// Degenerate merge: pass through with no heap overhead.
		return sources[0]
	}

	return func(yield func(model.EventRecord) bool) {
		pulls := make([]func() (model.EventRecord, bool), len(sources))
		stops := make([]func(), len(sources))
		for i, src := range sources {
			pulls[i], stops[i] = iter.Pull(src)
		}
		defer func() {
			for _, stop := range stops {
				stop()
			}
		}()

		h := &mergeHeap{}
		heap.Init(h)
		for i := range sources {
			if rec, ok := pulls[i](); ok {
				heap.Push(h, mergeItem{rec: rec, source: i})
			}
		}

		for h.Len() > 0 {
			item := heap.Pop(h).(mergeItem)
			if !yield(item.rec) {
				return
			}
			// Refill from the source that just drained.
			if rec, ok := pulls[item.source](); ok {
				heap.Push(h, mergeItem{rec: rec, source: item.source})
			}
		}
	}
}

type mergeItem struct {
	rec    model.EventRecord
	source int
}

// mergeHeap is a min-heap keyed by (timestamp, source index).
type mergeHeap []mergeItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	ti, tj := h[i].rec.Timestamp, h[j].rec.Timestamp
	if ti.Equal(tj) {
		return h[i].source < h[j].source
	}
	return ti.Before(tj)
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x any) { *h = append(*h, x.(mergeItem)) }

func (h *mergeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
