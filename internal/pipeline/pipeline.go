// Package pipeline connects extraction, decoding, correlation, analysis, and
// reporting into one diagnostic run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/winfault/internal/correlate"
	"github.com/crimson-sun/winfault/internal/dump"
	"github.com/crimson-sun/winfault/internal/evtx"
	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/output"
	"github.com/crimson-sun/winfault/internal/session"
	"github.com/crimson-sun/winfault/internal/stream"
)

// Request describes one diagnostic run. DumpPath and EventLogPaths are each
// optional, but at least one input must be present.
type Request struct {
	DumpPath      string
	EventLogPaths []string

	FilterLevel   model.Level // 0 keeps every level
	LevelMode     stream.LevelMode
	Sources       []string
	ExplicitStart *time.Time
	ExplicitEnd   *time.Time
	WindowSeconds int
}

// Validate checks that the request names at least one input.
func (r Request) Validate() error {
	if r.DumpPath == "" && len(r.EventLogPaths) == 0 {
		return fmt.Errorf("pipeline: need a dump file or at least one event log")
	}
	return nil
}

// Analyzer is the slice of the LLM analyzer the pipeline uses.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string, crash *model.CrashRecord, events []model.EventRecord, timeline []string) (*model.AnalysisReport, error)
}

// Pipeline orchestrates a diagnostic run end to end.
type Pipeline struct {
	extractor *dump.Extractor
	analyzer  Analyzer // nil disables analysis
	reporter  output.Reporter
}

// New creates a Pipeline from the given components. A nil analyzer skips the
// analysis stage; extraction and correlation still run.
func New(extractor *dump.Extractor, an Analyzer, reporter output.Reporter) *Pipeline {
	return &Pipeline{extractor: extractor, analyzer: an, reporter: reporter}
}

// Run executes one diagnostic session. Extraction failures fail the run;
// analysis failures do not, the session completes with the error recorded.
// The session is reported and returned even on failure so callers can
// persist it.
func (p *Pipeline) Run(ctx context.Context, req Request) (*session.Session, error) {
	s := session.New()
	if err := req.Validate(); err != nil {
		return p.fail(s, err)
	}

	if req.DumpPath != "" {
		crash, err := p.extractor.Extract(ctx, req.DumpPath)
		if err != nil {
			return p.fail(s, fmt.Errorf("extract %q: %w", req.DumpPath, err))
		}
		s.Crash = crash
		slog.Info("crash extracted",
			"path", req.DumpPath, "type", crash.CrashType, "process", crash.ProcessName)
	}

	if len(req.EventLogPaths) > 0 {
		decoder := evtx.NewDecoder()
		seq, err := decoder.Decode(req.EventLogPaths...)
		if err != nil {
			return p.fail(s, fmt.Errorf("decode event logs: %w", err))
		}
		seq = stream.FilterLevel(seq, req.FilterLevel, req.LevelMode)
		seq = stream.FilterSources(seq, req.Sources)

		window := correlate.Resolve(s.Crash, req.ExplicitStart, req.ExplicitEnd, req.WindowSeconds)
		s.Events = correlate.Select(seq, window)

		if skipped, samples := decoder.WarningSummary(); skipped > 0 {
			slog.Warn("records skipped during decode", "count", skipped, "samples", samples)
		}
	}

	crashAt := time.Time{}
	if s.HasCrash() {
		crashAt = s.Crash.Timestamp
	}
	if len(s.Events) > 0 || !crashAt.IsZero() {
		s.Timeline = correlate.RenderTimeline(s.Events, crashAt)
	}

	if p.analyzer != nil && (s.HasCrash() || len(s.Events) > 0) {
		s.Status = session.StatusAnalyzing
		report, err := p.analyzer.Analyze(ctx, s.ID, s.Crash, s.Events, s.Timeline)
		if err != nil {
			// Extraction results are still valuable without the report.
			s.ErrorMessage = fmt.Sprintf("analysis failed: %v", err)
			slog.Warn("analysis failed", "session", s.ID, "error", err)
		} else {
			s.Report = report
		}
	}

	s.Status = session.StatusComplete
	if err := p.report(s); err != nil {
		return s, err
	}
	return s, nil
}

func (p *Pipeline) fail(s *session.Session, err error) (*session.Session, error) {
	s.Status = session.StatusFailed
	s.ErrorMessage = err.Error()
	if rerr := p.report(s); rerr != nil {
		slog.Warn("failed session could not be reported", "session", s.ID, "error", rerr)
	}
	return s, fmt.Errorf("pipeline: %w", err)
}

func (p *Pipeline) report(s *session.Session) error {
	if p.reporter == nil {
		return nil
	}
	if err := p.reporter.Report(s); err != nil {
		return fmt.Errorf("pipeline: report: %w", err)
	}
	return nil
}

// Close shuts down the reporter.
func (p *Pipeline) Close() error {
	if p.reporter == nil {
		return nil
	}
	return p.reporter.Close()
}
