// Package correlate selects the event-log entries relevant to a crash instant
// and renders them as a human-readable timeline.
package correlate

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/stream"
)

// DefaultWindowSeconds is the span applied on each side of the crash instant
// when no explicit range is given.
const DefaultWindowSeconds = 3600

// maxTimelineMessage is the rendered message length bound, in runes.
// Longer messages are cut there and marked with "...".
const maxTimelineMessage = 100

// Window is the resolved correlation time range. A zero Window means the full
// event sequence is used unfiltered.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no windowing applies.
func (w Window) IsZero() bool { return w.Start.IsZero() && w.End.IsZero() }

// Resolve decides the relevant time window, in priority order:
// an explicit [start, end] pair is used verbatim (UTC-normalized); otherwise a
// crash record with a known timestamp yields crash ± windowSeconds; otherwise
// no window applies. A windowSeconds of 0 or below falls back to the default.
func Resolve(crash *model.CrashRecord, explicitStart, explicitEnd *time.Time, windowSeconds int) Window {
	if explicitStart != nil && explicitEnd != nil {
		return Window{Start: explicitStart.UTC(), End: explicitEnd.UTC()}
	}
	if crash != nil && !crash.Timestamp.IsZero() {
		if windowSeconds <= 0 {
			windowSeconds = DefaultWindowSeconds
		}
		span := time.Duration(windowSeconds) * time.Second
		c := crash.Timestamp.UTC()
		return Window{Start: c.Add(-span), End: c.Add(span)}
	}
	return Window{}
}

// Select consumes the event sequence and returns the records inside the
// resolved window, ascending by timestamp. Merge output is already ordered,
// so the sort below is a verification no-op in the common path.
func Select(events stream.Seq, w Window) []model.EventRecord {
	if !w.IsZero() {
		events = stream.FilterTimeRange(events, w.Start, w.End)
	}
	selected := stream.Collect(events)
	if !sort.SliceIsSorted(selected, func(i, j int) bool {
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	}) {
		sort.SliceStable(selected, func(i, j int) bool {
			return selected[i].Timestamp.Before(selected[j].Timestamp)
		})
	}
	return selected
}

// RenderTimeline formats each record as one fixed-format line:
//
//	<timestamp> | <level> | <source> | #<record> | <message>
//
// Messages have embedded newlines collapsed to spaces and are truncated to
// 100 runes with a "..." marker. When crashAt is non-zero a crash marker line
// is appended.
func RenderTimeline(events []model.EventRecord, crashAt time.Time) []string {
	lines := make([]string, 0, len(events)+1)
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("%s | %s | %s | #%d | %s",
			e.Timestamp.UTC().Format("2006-01-02 15:04:05"),
			e.Level,
			e.Source,
			e.RecordNumber,
			flatten(e.Message)))
	}
	if !crashAt.IsZero() {
		lines = append(lines, fmt.Sprintf("%s | CRASH | System | - | Application crash occurred",
			crashAt.UTC().Format("2006-01-02 15:04:05")))
	}
	return lines
}

// flatten collapses newlines to spaces and truncates to the message bound.
func flatten(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	runes := []rune(msg)
	if len(runes) > maxTimelineMessage {
		return string(runes[:maxTimelineMessage]) + "..."
	}
	return msg
}
