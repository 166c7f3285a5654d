// Package markdown writes a diagnostic session as a Markdown report file.
package markdown

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/session"
)

// Reporter writes one Markdown file per session into a directory.
type Reporter struct {
	dir string
}

// New creates a markdown Reporter writing report files into dir.
func New(dir string) *Reporter {
	return &Reporter{dir: dir}
}

func (r *Reporter) Report(s *session.Session) error {
	path := filepath.Join(r.dir, s.ID+".md")
	if err := os.WriteFile(path, []byte(Render(s)), 0o644); err != nil {
		return fmt.Errorf("markdown output: write %q: %w", path, err)
	}
	return nil
}

func (r *Reporter) Close() error { return nil }

// Render produces the Markdown text for a session.
func Render(s *session.Session) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Crash Analysis Report\n\n")
	fmt.Fprintf(&b, "- **Session:** %s\n", s.ID)
	fmt.Fprintf(&b, "- **Generated:** %s UTC\n", s.CreatedAt.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "- **Status:** %s\n", s.Status)

	if s.HasCrash() {
		renderCrash(&b, s.Crash)
	}

	fmt.Fprintf(&b, "\n## Events\n\n%d events selected, %d error or critical.\n",
		s.TotalEvents(), s.ErrorEventCount())

	if len(s.Timeline) > 0 {
		b.WriteString("\n## Timeline\n\n```\n")
		for _, line := range s.Timeline {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
	}

	if s.HasReport() {
		renderReport(&b, s.Report)
	}

	if s.ErrorMessage != "" {
		fmt.Fprintf(&b, "\n## Error\n\n%s\n", s.ErrorMessage)
	}
	return b.String()
}

func renderCrash(b *strings.Builder, c *model.CrashRecord) {
	b.WriteString("\n## Crash\n\n")
	fmt.Fprintf(b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(b, "| Type | %s |\n", c.CrashType)
	fmt.Fprintf(b, "| Process | %s |\n", c.ProcessName)
	fmt.Fprintf(b, "| Time | %s UTC |\n", c.Timestamp.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(b, "| OS | %s (%s) |\n", c.OSVersion, c.Architecture)
	if c.HasErrorCode() {
		fmt.Fprintf(b, "| Error code | `%s` |\n", c.ErrorCode)
	}
	if c.FaultingModule != "" {
		fmt.Fprintf(b, "| Faulting module | %s |\n", c.FaultingModule)
	}
	if c.FailureBucketID != "" {
		fmt.Fprintf(b, "| Failure bucket | `%s` |\n", c.FailureBucketID)
	}
	if c.IRQL != nil {
		fmt.Fprintf(b, "| IRQL | %d |\n", *c.IRQL)
	}

	if c.HasStackTrace() {
		b.WriteString("\n### Stack trace\n\n```\n")
		for _, line := range c.StackTrace {
			b.WriteString(line)
			b.WriteByte('\n')
		}
		b.WriteString("```\n")
	}
	if c.HasParseErrors() {
		b.WriteString("\n### Extraction warnings\n\n")
		for _, e := range c.ParseErrors {
			fmt.Fprintf(b, "- %s\n", e)
		}
	}
}

func renderReport(b *strings.Builder, rep *model.AnalysisReport) {
	fmt.Fprintf(b, "\n## Root cause\n\n%s\n", rep.RootCauseSummary)
	if rep.DetailedAnalysis != "" {
		fmt.Fprintf(b, "\n## Analysis\n\n%s\n", rep.DetailedAnalysis)
	}
	if len(rep.RemediationSteps) > 0 {
		b.WriteString("\n## Remediation\n\n")
		for i, step := range rep.RemediationSteps {
			fmt.Fprintf(b, "%d. %s\n", i+1, step)
		}
	}
	fmt.Fprintf(b, "\n---\n\nGenerated by %s in %.1fs", rep.ModelUsed, rep.ProcessingTime)
	if rep.TokenUsage != nil {
		fmt.Fprintf(b, " (%d tokens)", *rep.TokenUsage)
	}
	b.WriteString("\n")
}
