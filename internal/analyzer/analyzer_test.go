package analyzer

import (
	"context"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/winfault/internal/model"
)

type fakeChat struct {
	gotReq  openai.ChatCompletionRequest
	content string
	tokens  int
	err     error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.gotReq = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
		Usage: openai.Usage{TotalTokens: f.tokens},
	}, nil
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New("", "gpt-4")
	assert.Error(t, err)

	a, err := New("sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, openai.GPT4, a.model)
}

func TestBuildPrompt(t *testing.T) {
	irql := 2
	uptime := int64(90061)
	crash := &model.CrashRecord{
		FilePath:        "memory.dmp",
		FileSizeBytes:   1 << 20,
		Timestamp:       time.Date(2025, 11, 10, 22, 0, 0, 0, time.UTC),
		CrashType:       model.CrashBugcheck,
		ProcessName:     "System",
		OSVersion:       "Windows 10",
		Architecture:    "x64",
		ErrorCode:       "0xD1",
		FaultingModule:  "mydriver.sys",
		BugcheckArgs:    []string{"0x8", "0x2"},
		IRQL:            &irql,
		FailureBucketID: "AV_mydriver!Fault",
		UptimeSeconds:   &uptime,
		StackTrace:      []string{"mydriver!Fault+0x12"},
	}
	timeline := []string{"2025-11-10 21:59:00 | Error | disk | #1 | bad block"}

	got := buildPrompt(crash, nil, timeline)

	assert.Contains(t, got, "CRASH INFORMATION:")
	assert.Contains(t, got, "- Type: BUGCHECK")
	assert.Contains(t, got, "- Error code: 0xD1")
	assert.Contains(t, got, "- Bugcheck arguments: 0x8, 0x2")
	assert.Contains(t, got, "- IRQL: 2")
	assert.Contains(t, got, "- Uptime: 90061s")
	assert.Contains(t, got, "STACK TRACE:")
	assert.Contains(t, got, "mydriver!Fault+0x12")
	assert.Contains(t, got, "EVENT TIMELINE:")
	assert.Contains(t, got, "bad block")
}

func TestBuildPromptEventsOnly(t *testing.T) {
	events := []model.EventRecord{
		{Timestamp: time.Date(2025, 11, 10, 21, 0, 0, 0, time.UTC), Level: model.LevelError, Source: "disk", Message: "bad block"},
	}
	got := buildPrompt(nil, events, nil)

	assert.NotContains(t, got, "CRASH INFORMATION:")
	assert.Contains(t, got, "EVENTS:")
	assert.Contains(t, got, "2025-11-10 21:00:00 | Error | disk | bad block")
}

func TestParseResponseSections(t *testing.T) {
	text := `ROOT CAUSE:
Faulty storage driver accessing pageable memory at raised IRQL.

ANALYSIS:
The bugcheck arguments point at mydriver.sys dereferencing an invalid address.

REMEDIATION:
1. Update mydriver.sys to the latest vendor release.
- Run driver verifier against mydriver.sys.
`
	report := parseResponse(text)

	assert.Equal(t, "Faulty storage driver accessing pageable memory at raised IRQL.", report.RootCauseSummary)
	assert.Contains(t, report.DetailedAnalysis, "bugcheck arguments")
	require.Len(t, report.RemediationSteps, 2)
	assert.Equal(t, "Update mydriver.sys to the latest vendor release.", report.RemediationSteps[0])
	assert.Equal(t, "Run driver verifier against mydriver.sys.", report.RemediationSteps[1])
}

func TestParseResponseUnstructured(t *testing.T) {
	report := parseResponse("The crash was caused by a bad driver.")

	assert.Equal(t, "See detailed analysis", report.RootCauseSummary)
	assert.Equal(t, "The crash was caused by a bad driver.", report.DetailedAnalysis)
	assert.Empty(t, report.RemediationSteps)
}

func TestAnalyze(t *testing.T) {
	fake := &fakeChat{
		content: "ROOT CAUSE:\nBad driver.\n\nANALYSIS:\nDetails.\n\nREMEDIATION:\n- Update it.",
		tokens:  321,
	}
	a := &Analyzer{client: fake, model: "gpt-4"}

	crash := &model.CrashRecord{
		FileSizeBytes: 1, CrashType: model.CrashException,
		ProcessName: "svc.exe", Architecture: "x64",
		Timestamp: time.Now().UTC(),
	}
	report, err := a.Analyze(context.Background(), "sess-1", crash, nil, []string{"line"})
	require.NoError(t, err)
	require.NoError(t, report.Validate())

	assert.Equal(t, "sess-1", report.SessionID)
	assert.Equal(t, "gpt-4", report.ModelUsed)
	assert.Equal(t, "Bad driver.", report.RootCauseSummary)
	assert.Equal(t, []string{"line"}, report.EventTimeline)
	require.NotNil(t, report.TokenUsage)
	assert.Equal(t, 321, *report.TokenUsage)

	// The request carries the diagnostic persona and tuning.
	require.Len(t, fake.gotReq.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fake.gotReq.Messages[0].Role)
	assert.Contains(t, fake.gotReq.Messages[0].Content, "Windows diagnostic expert")
	assert.InDelta(t, 0.3, fake.gotReq.Temperature, 0.001)
	assert.Equal(t, 2000, fake.gotReq.MaxTokens)
}

func TestAnalyzeNothingToAnalyze(t *testing.T) {
	a := &Analyzer{client: &fakeChat{}, model: "gpt-4"}
	_, err := a.Analyze(context.Background(), "sess-1", nil, nil, nil)
	assert.Error(t, err)
}
