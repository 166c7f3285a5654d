package winfault

import (
	"time"

	"github.com/crimson-sun/winfault/internal/model"
)

// Event is one decoded event-log entry.
type Event struct {
	RecordNumber uint64
	Timestamp    time.Time // always UTC
	EventID      int
	Source       string
	Level        string // Critical, Error, Warning, Information, Verbose
	Message      string
	FilePath     string
	ComputerName string
	UserSID      string
}

// Crash holds the facts extracted from one crash artifact. Fields a given
// extraction path could not determine are zero.
type Crash struct {
	FilePath      string
	FileSizeBytes int64
	Timestamp     time.Time // always UTC
	CrashType     string    // EXCEPTION, BUGCHECK, or UNKNOWN
	ProcessName   string
	ProcessID     *int
	ThreadID      *int
	OSVersion     string
	Architecture  string

	ErrorCode       string
	FaultingModule  string
	FaultingAddress string

	StackTrace    []string
	LoadedModules []string

	BugcheckArgs    []string
	IRQL            *int
	FailureBucketID string
	UptimeSeconds   *int64

	// Warnings lists non-fatal extraction problems.
	Warnings []string
}

// Report is the root-cause summary produced by the analyzer.
type Report struct {
	RootCauseSummary string
	DetailedAnalysis string
	RemediationSteps []string
	ModelUsed        string
	TokenUsage       *int
}

func eventFromRecord(r model.EventRecord) Event {
	return Event{
		RecordNumber: r.RecordNumber,
		Timestamp:    r.Timestamp,
		EventID:      r.EventID,
		Source:       r.Source,
		Level:        r.Level.String(),
		Message:      r.Message,
		FilePath:     r.FilePath,
		ComputerName: r.ComputerName,
		UserSID:      r.UserSID,
	}
}

func recordFromEvent(e Event) model.EventRecord {
	level, ok := model.ParseLevel(e.Level)
	if !ok {
		level = model.LevelInformation
	}
	return model.EventRecord{
		RecordNumber: e.RecordNumber,
		Timestamp:    e.Timestamp,
		EventID:      e.EventID,
		Source:       e.Source,
		Level:        level,
		Message:      e.Message,
		FilePath:     e.FilePath,
		ComputerName: e.ComputerName,
		UserSID:      e.UserSID,
	}
}

func crashFromRecord(c *model.CrashRecord) *Crash {
	if c == nil {
		return nil
	}
	return &Crash{
		FilePath:        c.FilePath,
		FileSizeBytes:   c.FileSizeBytes,
		Timestamp:       c.Timestamp,
		CrashType:       c.CrashType,
		ProcessName:     c.ProcessName,
		ProcessID:       c.ProcessID,
		ThreadID:        c.ThreadID,
		OSVersion:       c.OSVersion,
		Architecture:    c.Architecture,
		ErrorCode:       c.ErrorCode,
		FaultingModule:  c.FaultingModule,
		FaultingAddress: c.FaultingAddress,
		StackTrace:      c.StackTrace,
		LoadedModules:   c.LoadedModules,
		BugcheckArgs:    c.BugcheckArgs,
		IRQL:            c.IRQL,
		FailureBucketID: c.FailureBucketID,
		UptimeSeconds:   c.UptimeSeconds,
		Warnings:        c.ParseErrors,
	}
}

func recordFromCrash(c *Crash) *model.CrashRecord {
	if c == nil {
		return nil
	}
	return &model.CrashRecord{
		FilePath:        c.FilePath,
		FileSizeBytes:   c.FileSizeBytes,
		Timestamp:       c.Timestamp,
		CrashType:       c.CrashType,
		ProcessName:     c.ProcessName,
		ProcessID:       c.ProcessID,
		ThreadID:        c.ThreadID,
		OSVersion:       c.OSVersion,
		Architecture:    c.Architecture,
		ErrorCode:       c.ErrorCode,
		FaultingModule:  c.FaultingModule,
		FaultingAddress: c.FaultingAddress,
		StackTrace:      c.StackTrace,
		LoadedModules:   c.LoadedModules,
		BugcheckArgs:    c.BugcheckArgs,
		IRQL:            c.IRQL,
		FailureBucketID: c.FailureBucketID,
		UptimeSeconds:   c.UptimeSeconds,
		ParseErrors:     c.Warnings,
	}
}
