package stream

import (
	"strings"
	"time"

	"github.com/crimson-sun/winfault/internal/model"
)

// LevelMode selects the severity-filter semantics.
type LevelMode int

const (
	// LevelExact keeps only records whose level equals the threshold.
	LevelExact LevelMode = iota
	// LevelMinimum keeps records at least as severe as the threshold
	// (e.g. threshold Warning keeps Critical, Error, and Warning).
	LevelMinimum
)

// FilterLevel lazily filters by severity. A threshold of 0 (unspecified,
// the "all" spelling) passes everything through untouched.
func FilterLevel(seq Seq, threshold model.Level, mode LevelMode) Seq {
	if threshold == 0 {
		return seq
	}
	return filter(seq, func(r model.EventRecord) bool {
		if mode == LevelExact {
			return r.Level == threshold
		}
		return r.Level.AtLeast(threshold)
	})
}

// FilterSources lazily keeps records whose provider name matches one of the
// given names, compared case-insensitively and exactly. An empty set means
// no source filtering.
func FilterSources(seq Seq, sources []string) Seq {
	if len(sources) == 0 {
		return seq
	}
	want := make(map[string]bool, len(sources))
	for _, s := range sources {
		want[strings.ToLower(s)] = true
	}
	return filter(seq, func(r model.EventRecord) bool {
		return want[strings.ToLower(r.Source)]
	})
}

// FilterTimeRange lazily keeps records with start <= timestamp <= end,
// both bounds inclusive and compared in UTC.
func FilterTimeRange(seq Seq, start, end time.Time) Seq {
	start, end = start.UTC(), end.UTC()
	return filter(seq, func(r model.EventRecord) bool {
		return r.WithinRange(start, end)
	})
}

func filter(seq Seq, keep func(model.EventRecord) bool) Seq {
	return func(yield func(model.EventRecord) bool) {
		for r := range seq {
			if !keep(r) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}
