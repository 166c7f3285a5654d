// Package console renders a diagnostic session as colored terminal output.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/session"
)

var (
	headerColor   = color.New(color.FgCyan, color.Bold)
	criticalColor = color.New(color.FgRed, color.Bold)
	errorColor    = color.New(color.FgRed)
	warningColor  = color.New(color.FgYellow)
	infoColor     = color.New(color.FgWhite)
	dimColor      = color.New(color.Faint)
)

// Reporter writes a human-readable summary of a session.
type Reporter struct {
	w io.Writer
}

// New creates a console Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) Report(s *session.Session) error {
	headerColor.Fprintf(r.w, "Session %s (%s)\n", s.ID, s.Status)

	if s.HasCrash() {
		r.printCrash(s.Crash)
	}

	fmt.Fprintf(r.w, "\nEvents: %d total, %d error or critical\n", s.TotalEvents(), s.ErrorEventCount())

	if len(s.Timeline) > 0 {
		headerColor.Fprintln(r.w, "\nTimeline:")
		for _, line := range s.Timeline {
			levelColorFor(line).Fprintln(r.w, line)
		}
	}

	if s.HasReport() {
		r.printReport(s.Report)
	}

	if s.ErrorMessage != "" {
		errorColor.Fprintf(r.w, "\nError: %s\n", s.ErrorMessage)
	}
	return nil
}

func (r *Reporter) Close() error { return nil }

func (r *Reporter) printCrash(c *model.CrashRecord) {
	headerColor.Fprintln(r.w, "\nCrash:")
	fmt.Fprintf(r.w, "  Type:         %s\n", c.CrashType)
	fmt.Fprintf(r.w, "  Process:      %s\n", c.ProcessName)
	fmt.Fprintf(r.w, "  Time:         %s UTC\n", c.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(r.w, "  OS:           %s (%s)\n", c.OSVersion, c.Architecture)
	if c.HasErrorCode() {
		errorColor.Fprintf(r.w, "  Error code:   %s\n", c.ErrorCode)
	}
	if c.FaultingModule != "" {
		fmt.Fprintf(r.w, "  Module:       %s\n", c.FaultingModule)
	}
	if c.FailureBucketID != "" {
		fmt.Fprintf(r.w, "  Bucket:       %s\n", c.FailureBucketID)
	}
	if c.HasStackTrace() {
		fmt.Fprintln(r.w, "  Stack:")
		for _, line := range c.StackTrace {
			dimColor.Fprintf(r.w, "    %s\n", line)
		}
	}
	if c.HasParseErrors() {
		warningColor.Fprintf(r.w, "  Extraction warnings: %d\n", len(c.ParseErrors))
	}
}

func (r *Reporter) printReport(rep *model.AnalysisReport) {
	headerColor.Fprintln(r.w, "\nRoot cause:")
	fmt.Fprintf(r.w, "  %s\n", rep.RootCauseSummary)
	if rep.DetailedAnalysis != "" {
		headerColor.Fprintln(r.w, "\nAnalysis:")
		fmt.Fprintf(r.w, "  %s\n", rep.DetailedAnalysis)
	}
	if len(rep.RemediationSteps) > 0 {
		headerColor.Fprintln(r.w, "\nRemediation:")
		for i, step := range rep.RemediationSteps {
			fmt.Fprintf(r.w, "  %d. %s\n", i+1, step)
		}
	}
	dimColor.Fprintf(r.w, "\nModel %s, %.1fs", rep.ModelUsed, rep.ProcessingTime)
	if rep.TokenUsage != nil {
		dimColor.Fprintf(r.w, ", %d tokens", *rep.TokenUsage)
	}
	fmt.Fprintln(r.w)
}

// levelColorFor picks the color for a timeline line by its level column.
func levelColorFor(line string) *color.Color {
	switch {
	case strings.Contains(line, "| CRASH |"), strings.Contains(line, "| Critical |"):
		return criticalColor
	case strings.Contains(line, "| Error |"):
		return errorColor
	case strings.Contains(line, "| Warning |"):
		return warningColor
	default:
		return infoColor
	}
}
