package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/winfault/internal/correlate"
	"github.com/crimson-sun/winfault/internal/evtx"
	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/stream"
)

func newEventsCmd(jsonOutput *bool) *cobra.Command {
	var (
		filterLevel string
		exactLevel  bool
		sources     []string
		startStr    string
		endStr      string
		limit       int
	)

	cmd := &cobra.Command{
		Use:   "events <file.evtx> [more.evtx...]",
		Short: "Decode and filter event logs",
		Long: "Decode one or more .evtx files into a single chronologically merged\n" +
			"stream, apply level, source, and time filters, and print the result.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decoder := evtx.NewDecoder()
			seq, err := decoder.Decode(args...)
			if err != nil {
				return err
			}

			if level, ok := model.ParseLevel(filterLevel); ok {
				mode := stream.LevelMinimum
				if exactLevel {
					mode = stream.LevelExact
				}
				seq = stream.FilterLevel(seq, level, mode)
			}
			seq = stream.FilterSources(seq, sources)

			start, err := parseTimeFlag(startStr)
			if err != nil {
				return err
			}
			end, err := parseTimeFlag(endStr)
			if err != nil {
				return err
			}
			if start != nil || end != nil {
				lo, hi := time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
				if start != nil {
					lo = *start
				}
				if end != nil {
					hi = *end
				}
				seq = stream.FilterTimeRange(seq, lo, hi)
			}

			count := 0
			if *jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				for rec := range seq {
					if limit > 0 && count >= limit {
						break
					}
					if err := enc.Encode(rec); err != nil {
						return err
					}
					count++
				}
			} else {
				for rec := range seq {
					if limit > 0 && count >= limit {
						break
					}
					for _, line := range correlate.RenderTimeline([]model.EventRecord{rec}, time.Time{}) {
						fmt.Fprintln(cmd.OutOrStdout(), line)
					}
					count++
				}
			}

			if skipped, samples := decoder.WarningSummary(); skipped > 0 {
				slog.Warn("records skipped", "count", skipped, "samples", samples)
			}
			slog.Info("events printed", "count", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&filterLevel, "filter-level", "", "severity filter: critical, error, warning, info, verbose, all")
	cmd.Flags().BoolVar(&exactLevel, "exact-level", false, "match the level exactly instead of at-least")
	cmd.Flags().StringArrayVar(&sources, "source", nil, "keep only events from this provider (repeatable)")
	cmd.Flags().StringVar(&startStr, "start", "", "keep events at or after this instant (UTC)")
	cmd.Flags().StringVar(&endStr, "end", "", "keep events at or before this instant (UTC)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many events (0 = all)")
	return cmd
}
