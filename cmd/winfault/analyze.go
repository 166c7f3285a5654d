package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/winfault/internal/analyzer"
	"github.com/crimson-sun/winfault/internal/config"
	"github.com/crimson-sun/winfault/internal/dump"
	"github.com/crimson-sun/winfault/internal/dump/windbg"
	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/output"
	"github.com/crimson-sun/winfault/internal/output/console"
	"github.com/crimson-sun/winfault/internal/output/jsonfile"
	"github.com/crimson-sun/winfault/internal/output/markdown"
	"github.com/crimson-sun/winfault/internal/output/multi"
	"github.com/crimson-sun/winfault/internal/pipeline"
	"github.com/crimson-sun/winfault/internal/stream"
)

// timeLayouts are the accepted spellings for --start and --end.
var timeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func newAnalyzeCmd(jsonOutput *bool) *cobra.Command {
	var (
		dmpPath     string
		evtxPaths   []string
		filterLevel string
		sources     []string
		startStr    string
		endStr      string
		window      int
		noAnalyze   bool
		chatModel   string
		outputDir   string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run a full diagnostic session",
		Long: "Extract a crash dump, decode event logs, correlate the events around\n" +
			"the crash instant, and (when an OpenAI key is configured) generate a\n" +
			"root-cause report. A dump file, event logs, or both must be given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			req := pipeline.Request{
				DumpPath:      dmpPath,
				EventLogPaths: evtxPaths,
				LevelMode:     stream.LevelMinimum,
				Sources:       sources,
				WindowSeconds: window,
			}
			if filterLevel == "" {
				filterLevel = cfg.Events.FilterLevel
			}
			if level, ok := model.ParseLevel(filterLevel); ok {
				req.FilterLevel = level
			}
			if req.WindowSeconds == 0 {
				req.WindowSeconds = cfg.Events.TimeWindowSeconds
			}
			if req.ExplicitStart, err = parseTimeFlag(startStr); err != nil {
				return err
			}
			if req.ExplicitEnd, err = parseTimeFlag(endStr); err != nil {
				return err
			}

			var an *analyzer.Analyzer
			if !noAnalyze && cfg.Analyzer.APIKey != "" {
				if chatModel == "" {
					chatModel = cfg.Analyzer.Model
				}
				if an, err = analyzer.New(cfg.Analyzer.APIKey, chatModel); err != nil {
					return err
				}
			}

			sessionsDir := outputDir
			if sessionsDir == "" {
				if sessionsDir, err = config.SessionsDir(); err != nil {
					return err
				}
			} else if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
			var reporter output.Reporter
			if *jsonOutput {
				reporter = jsonfile.New(cmd.OutOrStdout())
			} else {
				reporter = multi.New(console.New(cmd.OutOrStdout()), markdown.New(sessionsDir))
			}

			p := pipeline.New(dump.New(windbg.Config{
				CdbPath:    cfg.Debugger.CdbPath,
				KdPath:     cfg.Debugger.KdPath,
				SymbolPath: cfg.Debugger.SymbolPath,
				Timeout:    cfg.Debugger.Timeout(),
			}), analyzerOrNil(an), reporter)
			defer p.Close()

			s, runErr := p.Run(cmd.Context(), req)
			if path, err := s.Save(sessionsDir); err != nil {
				slog.Warn("session not saved", "error", err)
			} else {
				slog.Info("session saved", "path", path)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&dmpPath, "dmp", "", "crash dump file (.dmp)")
	cmd.Flags().StringArrayVar(&evtxPaths, "evtx", nil, "event log file (repeatable)")
	cmd.Flags().StringVar(&filterLevel, "filter-level", "", "minimum severity: critical, error, warning, info, verbose, all")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "keep only events from this provider (repeatable)")
	cmd.Flags().StringVar(&startStr, "start", "", "explicit window start (RFC3339 or \"2006-01-02 15:04:05\", UTC)")
	cmd.Flags().StringVar(&endStr, "end", "", "explicit window end")
	cmd.Flags().IntVar(&window, "time-window", 0, "seconds on each side of the crash instant (default 3600)")
	cmd.Flags().BoolVar(&noAnalyze, "no-analyze", false, "skip LLM analysis")
	cmd.Flags().StringVar(&chatModel, "model", "", "chat model for analysis (default from config)")
	cmd.Flags().StringVar(&outputDir, "output-dir", "", "directory for the session JSON and markdown report (default ~/.winfault/sessions)")
	return cmd
}

// analyzerOrNil keeps a typed nil *analyzer.Analyzer from becoming a
// non-nil interface inside the pipeline.
func analyzerOrNil(an *analyzer.Analyzer) pipeline.Analyzer {
	if an == nil {
		return nil
	}
	return an
}

func parseTimeFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized time %q (want RFC3339 or \"2006-01-02 15:04:05\")", s)
}
