package winfault

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/winfault/internal/analyzer"
	"github.com/crimson-sun/winfault/internal/correlate"
	"github.com/crimson-sun/winfault/internal/dump"
	"github.com/crimson-sun/winfault/internal/dump/windbg"
	"github.com/crimson-sun/winfault/internal/evtx"
	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/stream"
)

// Winfault is the crash-triage engine. Safe for concurrent use.
type Winfault struct {
	extractor *dump.Extractor
	analyzer  *analyzer.Analyzer
}

// New creates a Winfault instance.
func New(opts ...Option) (*Winfault, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	wf := &Winfault{
		extractor: dump.New(windbg.Config{
			CdbPath:    o.cdbPath,
			KdPath:     o.kdPath,
			SymbolPath: o.symbolPath,
			Timeout:    o.timeout,
		}),
	}

	if o.apiKey != "" {
		an, err := analyzer.New(o.apiKey, o.chatModel)
		if err != nil {
			return nil, fmt.Errorf("winfault: %w", err)
		}
		wf.analyzer = an
	}
	return wf, nil
}

// ExtractCrash parses a crash-dump file into a Crash. Minidumps are parsed
// in-process; other formats go through the configured WinDbg debugger.
func (w *Winfault) ExtractCrash(ctx context.Context, path string) (*Crash, error) {
	rec, err := w.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return crashFromRecord(rec), nil
}

// DecodeEvents decodes the given event-log files into one chronologically
// merged slice. Malformed records are skipped; the second return value
// reports how many.
func (w *Winfault) DecodeEvents(paths ...string) ([]Event, int, error) {
	d := evtx.NewDecoder()
	seq, err := d.Decode(paths...)
	if err != nil {
		return nil, 0, err
	}
	records := stream.Collect(seq)
	events := make([]Event, len(records))
	for i, r := range records {
		events[i] = eventFromRecord(r)
	}
	skipped, _ := d.WarningSummary()
	return events, skipped, nil
}

// FilterEvents keeps events at least as severe as minLevel ("critical",
// "error", "warning", "info", "verbose"; "" or "all" keeps everything) and,
// when sources is non-empty, whose source matches one of the given names
// case-insensitively.
func (w *Winfault) FilterEvents(events []Event, minLevel string, sources []string) []Event {
	threshold, _ := model.ParseLevel(minLevel)
	seq := stream.FromSlice(toRecords(events))
	seq = stream.FilterLevel(seq, threshold, stream.LevelMinimum)
	seq = stream.FilterSources(seq, sources)

	var out []Event
	for r := range seq {
		out = append(out, eventFromRecord(r))
	}
	return out
}

// Correlate selects the events inside the crash window (crash instant plus
// and minus windowSeconds, default one hour) and renders the timeline. With a
// nil crash the full event slice is used and no marker line is added.
func (w *Winfault) Correlate(crash *Crash, events []Event, windowSeconds int) ([]Event, []string) {
	crashRec := recordFromCrash(crash)
	window := correlate.Resolve(crashRec, nil, nil, windowSeconds)
	selected := correlate.Select(stream.FromSlice(toRecords(events)), window)

	crashAt := time.Time{}
	if crashRec != nil {
		crashAt = crashRec.Timestamp
	}
	timeline := correlate.RenderTimeline(selected, crashAt)

	out := make([]Event, len(selected))
	for i, r := range selected {
		out[i] = eventFromRecord(r)
	}
	return out, timeline
}

// Analyze asks the configured LLM for a root-cause report. Requires the
// WithAnalyzer option; either crash or events may be nil, not both.
func (w *Winfault) Analyze(ctx context.Context, crash *Crash, events []Event, timeline []string) (*Report, error) {
	if w.analyzer == nil {
		return nil, fmt.Errorf("winfault: analyzer not configured (use WithAnalyzer)")
	}
	rep, err := w.analyzer.Analyze(ctx, uuid.NewString(), recordFromCrash(crash), toRecords(events), timeline)
	if err != nil {
		return nil, err
	}
	return &Report{
		RootCauseSummary: rep.RootCauseSummary,
		DetailedAnalysis: rep.DetailedAnalysis,
		RemediationSteps: rep.RemediationSteps,
		ModelUsed:        rep.ModelUsed,
		TokenUsage:       rep.TokenUsage,
	}, nil
}

func toRecords(events []Event) []model.EventRecord {
	records := make([]model.EventRecord, len(events))
	for i, e := range events {
		records[i] = recordFromEvent(e)
	}
	return records
}
