package pipeline

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/winfault/internal/dump"
	"github.com/crimson-sun/winfault/internal/dump/windbg"
	"github.com/crimson-sun/winfault/internal/model"
	"github.com/crimson-sun/winfault/internal/session"
)

type fakeAnalyzer struct {
	called bool
	err    error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, sessionID string, _ *model.CrashRecord, _ []model.EventRecord, timeline []string) (*model.AnalysisReport, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return &model.AnalysisReport{
		SessionID:        sessionID,
		GeneratedAt:      time.Now().UTC(),
		ModelUsed:        "test-model",
		RootCauseSummary: "test cause",
		EventTimeline:    timeline,
		ProcessingTime:   0.1,
	}, nil
}

type fakeReporter struct {
	sessions []*session.Session
	closed   bool
}

func (f *fakeReporter) Report(s *session.Session) error {
	f.sessions = append(f.sessions, s)
	return nil
}

func (f *fakeReporter) Close() error {
	f.closed = true
	return nil
}

// emptyMinidump writes a header-only minidump: valid signature, zero streams.
// Extraction succeeds with every field at its default.
func emptyMinidump(t *testing.T) string {
	t.Helper()
	var buf bytes.Buffer
	hdr := struct {
		Signature          uint32
		Version            uint32
		NumberOfStreams    uint32
		StreamDirectoryRVA uint32
		CheckSum           uint32
		TimeDateStamp      uint32
		Flags              uint64
	}{
		Signature:          0x504D444D,
		Version:            0xA793,
		StreamDirectoryRVA: 32,
		TimeDateStamp:      uint32(time.Date(2025, 11, 10, 22, 0, 0, 0, time.UTC).Unix()),
	}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))

	path := filepath.Join(t.TempDir(), "crash.dmp")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestRunDumpOnly(t *testing.T) {
	an := &fakeAnalyzer{}
	rep := &fakeReporter{}
	p := New(dump.New(windbg.Config{}), an, rep)

	s, err := p.Run(context.Background(), Request{DumpPath: emptyMinidump(t)})
	require.NoError(t, err)

	assert.Equal(t, session.StatusComplete, s.Status)
	require.True(t, s.HasCrash())
	assert.Equal(t, model.CrashUnknown, s.Crash.CrashType)
	assert.True(t, s.Crash.Timestamp.Equal(time.Date(2025, 11, 10, 22, 0, 0, 0, time.UTC)))

	// No events, but the crash still yields a marker line.
	require.Len(t, s.Timeline, 1)
	assert.Contains(t, s.Timeline[0], "CRASH")

	assert.True(t, an.called)
	require.True(t, s.HasReport())
	assert.Equal(t, "test cause", s.Report.RootCauseSummary)

	require.Len(t, rep.sessions, 1)
	assert.Same(t, s, rep.sessions[0])
}

func TestRunWithoutAnalyzer(t *testing.T) {
	rep := &fakeReporter{}
	p := New(dump.New(windbg.Config{}), nil, rep)

	s, err := p.Run(context.Background(), Request{DumpPath: emptyMinidump(t)})
	require.NoError(t, err)
	assert.Equal(t, session.StatusComplete, s.Status)
	assert.False(t, s.HasReport())
}

func TestRunAnalysisFailureDoesNotFailRun(t *testing.T) {
	an := &fakeAnalyzer{err: errors.New("rate limited")}
	p := New(dump.New(windbg.Config{}), an, &fakeReporter{})

	s, err := p.Run(context.Background(), Request{DumpPath: emptyMinidump(t)})
	require.NoError(t, err)

	assert.Equal(t, session.StatusComplete, s.Status)
	assert.False(t, s.HasReport())
	assert.Contains(t, s.ErrorMessage, "rate limited")
}

func TestRunNoInputs(t *testing.T) {
	rep := &fakeReporter{}
	p := New(dump.New(windbg.Config{}), nil, rep)

	s, err := p.Run(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, session.StatusFailed, s.Status)
	assert.NotEmpty(t, s.ErrorMessage)

	// Failed sessions are still reported.
	require.Len(t, rep.sessions, 1)
}

func TestRunMissingDump(t *testing.T) {
	p := New(dump.New(windbg.Config{}), nil, &fakeReporter{})

	s, err := p.Run(context.Background(), Request{
		DumpPath: filepath.Join(t.TempDir(), "missing.dmp"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Equal(t, session.StatusFailed, s.Status)
}

func TestClose(t *testing.T) {
	rep := &fakeReporter{}
	p := New(dump.New(windbg.Config{}), nil, rep)
	require.NoError(t, p.Close())
	assert.True(t, rep.closed)
}
