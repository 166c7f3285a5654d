// Package analyzer turns a crash record and its correlated event timeline
// into a root-cause report using an OpenAI chat model.
package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/crimson-sun/winfault/internal/model"
)

const (
	systemPrompt = "You are a Windows diagnostic expert. Analyze the crash data and event logs, " +
		"identify the most probable root cause, and give concrete remediation steps. " +
		"Respond with three sections labelled ROOT CAUSE:, ANALYSIS:, and REMEDIATION:."

	temperature = 0.3
	maxTokens   = 2000
)

// chatClient is the slice of the OpenAI client the analyzer uses.
// Tests substitute a canned implementation.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Analyzer produces analysis reports for diagnostic sessions.
type Analyzer struct {
	client chatClient
	model  string
}

// New creates an Analyzer talking to the OpenAI API with the given key.
func New(apiKey, chatModel string) (*Analyzer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("analyzer: API key is required (set OPENAI_API_KEY or analyzer.api_key)")
	}
	if chatModel == "" {
		chatModel = openai.GPT4
	}
	return &Analyzer{client: openai.NewClient(apiKey), model: chatModel}, nil
}

// Analyze sends the crash facts and timeline to the model and returns the
// parsed report. Either crash or events may be absent, not both.
func (a *Analyzer) Analyze(ctx context.Context, sessionID string, crash *model.CrashRecord, events []model.EventRecord, timeline []string) (*model.AnalysisReport, error) {
	if crash == nil && len(events) == 0 {
		return nil, fmt.Errorf("analyzer: nothing to analyze")
	}

	prompt := buildPrompt(crash, events, timeline)
	slog.Debug("requesting analysis", "model", a.model, "prompt_chars", len(prompt))

	start := time.Now()
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("analyzer: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("analyzer: empty response from model")
	}

	report := parseResponse(resp.Choices[0].Message.Content)
	report.SessionID = sessionID
	report.GeneratedAt = time.Now().UTC()
	report.ModelUsed = a.model
	report.EventTimeline = timeline
	report.ProcessingTime = time.Since(start).Seconds()
	if resp.Usage.TotalTokens > 0 {
		tokens := resp.Usage.TotalTokens
		report.TokenUsage = &tokens
	}
	return report, nil
}

// buildPrompt renders the crash record and event context as plain text for
// the model. Only extracted fields appear; absent fields are omitted.
func buildPrompt(crash *model.CrashRecord, events []model.EventRecord, timeline []string) string {
	var b strings.Builder

	if crash != nil {
		b.WriteString("CRASH INFORMATION:\n")
		fmt.Fprintf(&b, "- Type: %s\n", crash.CrashType)
		fmt.Fprintf(&b, "- Process: %s\n", crash.ProcessName)
		fmt.Fprintf(&b, "- Time: %s\n", crash.Timestamp.UTC().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(&b, "- OS: %s (%s)\n", crash.OSVersion, crash.Architecture)
		if crash.HasErrorCode() {
			fmt.Fprintf(&b, "- Error code: %s\n", crash.ErrorCode)
		}
		if crash.FaultingModule != "" {
			fmt.Fprintf(&b, "- Faulting module: %s\n", crash.FaultingModule)
		}
		if len(crash.BugcheckArgs) > 0 {
			fmt.Fprintf(&b, "- Bugcheck arguments: %s\n", strings.Join(crash.BugcheckArgs, ", "))
		}
		if crash.IRQL != nil {
			fmt.Fprintf(&b, "- IRQL: %d\n", *crash.IRQL)
		}
		if crash.FailureBucketID != "" {
			fmt.Fprintf(&b, "- Failure bucket: %s\n", crash.FailureBucketID)
		}
		if crash.UptimeSeconds != nil {
			fmt.Fprintf(&b, "- Uptime: %ds\n", *crash.UptimeSeconds)
		}
		if crash.HasStackTrace() {
			b.WriteString("\nSTACK TRACE:\n")
			for _, line := range crash.StackTrace {
				fmt.Fprintf(&b, "  %s\n", line)
			}
		}
	}

	if len(timeline) > 0 {
		b.WriteString("\nEVENT TIMELINE:\n")
		for _, line := range timeline {
			fmt.Fprintf(&b, "%s\n", line)
		}
	} else if len(events) > 0 {
		b.WriteString("\nEVENTS:\n")
		for _, e := range events {
			fmt.Fprintf(&b, "%s | %s | %s | %s\n",
				e.Timestamp.UTC().Format("2006-01-02 15:04:05"), e.Level, e.Source, e.Message)
		}
	}

	return b.String()
}

// parseResponse splits the model output on the ROOT CAUSE / ANALYSIS /
// REMEDIATION section labels. If the labels are missing, the whole text
// becomes the detailed analysis with a generic summary.
func parseResponse(text string) *model.AnalysisReport {
	report := &model.AnalysisReport{}

	rootCause := section(text, "ROOT CAUSE:", "ANALYSIS:")
	analysis := section(text, "ANALYSIS:", "REMEDIATION:")
	remediation := section(text, "REMEDIATION:", "")

	if rootCause == "" && analysis == "" && remediation == "" {
		report.RootCauseSummary = "See detailed analysis"
		report.DetailedAnalysis = strings.TrimSpace(text)
		return report
	}

	report.RootCauseSummary = rootCause
	if report.RootCauseSummary == "" {
		report.RootCauseSummary = "See detailed analysis"
	}
	report.DetailedAnalysis = analysis
	if report.DetailedAnalysis == "" {
		report.DetailedAnalysis = strings.TrimSpace(text)
	}
	for _, line := range strings.Split(remediation, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789. ")
		if line != "" {
			report.RemediationSteps = append(report.RemediationSteps, line)
		}
	}
	return report
}

// section extracts the text between the start label and the end label
// (or end of input when end is empty).
func section(text, start, end string) string {
	i := strings.Index(text, start)
	if i < 0 {
		return ""
	}
	rest := text[i+len(start):]
	if end != "" {
		if j := strings.Index(rest, end); j >= 0 {
			rest = rest[:j]
		}
	}
	return strings.TrimSpace(rest)
}
