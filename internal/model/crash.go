package model

import (
	"fmt"
	"time"
)

// Crash classification values.
const (
	CrashException = "EXCEPTION"
	CrashBugcheck  = "BUGCHECK"
	CrashUnknown   = "UNKNOWN"
)

// Architecture labels a minidump or debugger transcript can resolve to.
var KnownArchitectures = map[string]bool{
	"x64":   true,
	"x86":   true,
	"ARM64": true,
	"ARM":   true,
}

// Bounds applied by extractors.
const (
	MaxStackLines    = 20
	MaxLoadedModules = 50
)

// CrashRecord holds the facts extracted from one crash artifact. It is built
// once by whichever extractor handled the file and is immutable afterwards.
// Every debugger-derived field is optional: absence is represented by the
// zero value (or nil for the pointer fields), never by an error.
type CrashRecord struct {
	FilePath      string    `json:"file_path"`
	FileSizeBytes int64     `json:"file_size_bytes"`
	Timestamp     time.Time `json:"timestamp"`  // crash instant, always UTC
	CrashType     string    `json:"crash_type"` // EXCEPTION | BUGCHECK | UNKNOWN
	ProcessName   string    `json:"process_name"`
	ProcessID     *int      `json:"process_id,omitempty"`
	ThreadID      *int      `json:"thread_id,omitempty"`
	OSVersion     string    `json:"os_version"`
	OSBuild       string    `json:"os_build,omitempty"`
	Architecture  string    `json:"architecture"` // one of KnownArchitectures

	ErrorCode       string `json:"error_code,omitempty"` // "0xNNNNNNNN" or a BUGCHECK_STR label
	FaultingModule  string `json:"faulting_module,omitempty"`
	FaultingAddress string `json:"faulting_address,omitempty"` // hex string

	StackTrace    []string `json:"stack_trace,omitempty"`    // outermost-first, at most MaxStackLines
	LoadedModules []string `json:"loaded_modules,omitempty"` // at most MaxLoadedModules

	// Kernel-dump fields, populated only by the debugger transcript path.
	BugcheckArgs    []string `json:"bugcheck_args,omitempty"` // 0-4 hex strings
	IRQL            *int     `json:"irql,omitempty"`
	SymbolName      string   `json:"symbol_name,omitempty"`
	FailureBucketID string   `json:"failure_bucket_id,omitempty"`
	DefaultBucketID string   `json:"default_bucket_id,omitempty"`
	ModuleVersion   string   `json:"module_version,omitempty"`
	ModuleTimestamp string   `json:"module_timestamp,omitempty"`

	UptimeSeconds *int64 `json:"uptime_seconds,omitempty"` // system uptime at crash, if known

	// ParseErrors collects non-fatal extraction problems. A populated list
	// does not invalidate the record.
	ParseErrors []string `json:"parse_errors,omitempty"`
}

// Validate checks the CrashRecord invariants.
func (c CrashRecord) Validate() error {
	if c.FileSizeBytes <= 0 {
		return fmt.Errorf("crash record: file size must be greater than 0")
	}
	if c.CrashType == "" {
		return fmt.Errorf("crash record: crash type cannot be empty")
	}
	if !KnownArchitectures[c.Architecture] {
		return fmt.Errorf("crash record: architecture must be x64, x86, ARM64, or ARM, got %q", c.Architecture)
	}
	if c.ProcessID != nil && *c.ProcessID <= 0 {
		return fmt.Errorf("crash record: process id must be greater than 0")
	}
	if c.ThreadID != nil && *c.ThreadID <= 0 {
		return fmt.Errorf("crash record: thread id must be greater than 0")
	}
	if c.UptimeSeconds != nil && *c.UptimeSeconds < 0 {
		return fmt.Errorf("crash record: uptime must be >= 0")
	}
	if len(c.BugcheckArgs) > 4 {
		return fmt.Errorf("crash record: at most 4 bugcheck arguments, got %d", len(c.BugcheckArgs))
	}
	return nil
}

// HasErrorCode reports whether an error or bugcheck code was extracted.
func (c CrashRecord) HasErrorCode() bool { return c.ErrorCode != "" }

// HasStackTrace reports whether any stack lines were extracted.
func (c CrashRecord) HasStackTrace() bool { return len(c.StackTrace) > 0 }

// HasParseErrors reports whether extraction hit non-fatal problems.
func (c CrashRecord) HasParseErrors() bool { return len(c.ParseErrors) > 0 }
