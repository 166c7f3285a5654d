// Package stream provides the lazy, pull-based event sequences the decode →
// merge → filter → correlate pipeline is built from.
//
// Sequences are finite and single-pass: once a consumer has ranged over one
// (fully or partially), it must not be ranged again. To re-process a file,
// re-acquire a fresh sequence from the decoder.
package stream

import (
	"iter"

	"github.com/crimson-sun/winfault/internal/model"
)

// Seq is a lazy sequence of event records.
type Seq = iter.Seq[model.EventRecord]

// FromSlice returns a Seq yielding the given records in order.
// Used by tests and by callers that already hold materialized events.
func FromSlice(records []model.EventRecord) Seq {
	return func(yield func(model.EventRecord) bool) {
		for _, r := range records {
			if !yield(r) {
				return
			}
		}
	}
}

// Collect materializes a sequence. The sequence is consumed.
func Collect(seq Seq) []model.EventRecord {
	var out []model.EventRecord
	for r := range seq {
		out = append(out, r)
	}
	return out
}
