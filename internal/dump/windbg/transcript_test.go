package windbg

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/winfault/internal/model"
)

// kernelTranscript approximates `!analyze -v` + `kv` + `lm` + `.time` output.
// Single quotes stand in for the backticks WinDbg prints inside addresses
// (raw string literals cannot contain backticks); tests swap them back.
const kernelTranscriptQuoted = `Microsoft (R) Windows Debugger Version 10.0.22621.1 AMD64

Loading Dump File [C:\dumps\MEMORY.DMP]
Kernel Bitmap Dump File: Kernel address space is available

Windows 10 Kernel Version 19041 MP (8 procs) Free x64
Debug session time: Tue Nov 11 07:01:02.000 2025 (UTC + 9:00)
System Uptime: 2 days 03:04:05.123

BUGCHECK_STR:  0xD1
BUGCHECK_CODE:  d1
Arguments:
Arg1: 0000000000000000, memory referenced
Arg2: 0000000000000002, IRQL
Arg3: 0000000000000008, value 0 = read operation
Arg4: fffff8032b5a1000, address which referenced memory

CURRENT_IRQL:  2
PROCESS_NAME:  System
SYMBOL_NAME:  mydriver!DispatchHandler+0x42
MODULE_NAME: mydriver
IMAGE_NAME:  mydriver.sys
IMAGE_VERSION:  1.2.3.4
FAILURE_BUCKET_ID:  AV_mydriver!DispatchHandler
DEFAULT_BUCKET_ID:  WIN8_DRIVER_FAULT
OSBUILD:  19041
FAULTING_THREAD:  0000000000001a2c

Probably caused by : mydriver.sys ( mydriver!DispatchHandler+42 )

Child-SP          RetAddr           Call Site
fffff803'2b5a0000 fffff803'2b666000 nt!KeBugCheckEx
fffff803'2b5a0008 fffff803'2b667000 mydriver!DispatchHandler+0x42

start             end                 module name
fffff803'2b5a0000 fffff803'2b666000   nt       (pdb symbols)
fffff803'2c000000 fffff803'2c050000   mydriver   (no symbols)
`

var kernelTranscript = strings.ReplaceAll(kernelTranscriptQuoted, "'", "\x60")

func TestApplyTranscriptKernelDump(t *testing.T) {
	rec := &model.CrashRecord{
		CrashType:    model.CrashUnknown,
		ProcessName:  "System",
		OSVersion:    "Windows (WinDbg)",
		Architecture: "x64",
	}
	applyTranscript(kernelTranscript, rec)

	assert.Equal(t, model.CrashBugcheck, rec.CrashType)
	assert.Equal(t, "0xD1", rec.ErrorCode)
	assert.Equal(t, []string{
		"0000000000000000",
		"0000000000000002",
		"0000000000000008",
		"fffff8032b5a1000",
	}, rec.BugcheckArgs)

	require.NotNil(t, rec.IRQL)
	assert.Equal(t, 2, *rec.IRQL)
	assert.Equal(t, "System", rec.ProcessName)
	assert.Equal(t, "mydriver!DispatchHandler+0x42", rec.SymbolName)
	assert.Equal(t, "mydriver.sys", rec.FaultingModule) // "Probably caused by" wins
	assert.Equal(t, "AV_mydriver!DispatchHandler", rec.FailureBucketID)
	assert.Equal(t, "WIN8_DRIVER_FAULT", rec.DefaultBucketID)
	assert.Equal(t, "1.2.3.4", rec.ModuleVersion)

	require.NotNil(t, rec.ThreadID)
	assert.Equal(t, 0x1a2c, *rec.ThreadID)

	assert.Equal(t, "Windows 10 Kernel Version 19041 MP (8 procs) Free x64", rec.OSVersion)
	assert.Equal(t, "19041", rec.OSBuild)
	assert.Equal(t, "x64", rec.Architecture)

	// UTC + 9:00 label: local time is nine hours ahead of UTC.
	assert.True(t, rec.Timestamp.Equal(time.Date(2025, 11, 10, 22, 1, 2, 0, time.UTC)))

	require.NotNil(t, rec.UptimeSeconds)
	assert.Equal(t, int64(2*86400+3*3600+4*60+5), *rec.UptimeSeconds)

	assert.Contains(t, rec.LoadedModules, "nt")
	assert.Contains(t, rec.LoadedModules, "mydriver")

	require.NotEmpty(t, rec.StackTrace)
	assert.Contains(t, rec.StackTrace[0], "Child-SP")
	assert.Contains(t, rec.StackTrace[1], "nt!KeBugCheckEx")
}

func TestApplyTranscriptUserException(t *testing.T) {
	transcript := `
PROCESS_NAME:  notepad.exe
EXCEPTION_CODE: (NTSTATUS) 0xc0000005 - The instruction referenced memory that could not be read.
MODULE_NAME: ntdll
`
	rec := &model.CrashRecord{CrashType: model.CrashUnknown}
	applyTranscript(transcript, rec)

	assert.Equal(t, model.CrashException, rec.CrashType)
	assert.Equal(t, "0xc0000005", rec.ErrorCode)
	assert.Equal(t, "notepad.exe", rec.ProcessName)
	assert.Equal(t, "ntdll", rec.FaultingModule)
	assert.Empty(t, rec.BugcheckArgs)
	assert.Nil(t, rec.IRQL)
}

func TestParseSessionTimePositiveOffset(t *testing.T) {
	ts, ok := parseSessionTime("Debug session time: Tue Nov 11 07:01:02 2025 (UTC + 9:00)")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 11, 10, 22, 1, 2, 0, time.UTC)))
}

func TestParseSessionTimeNegativeOffset(t *testing.T) {
	ts, ok := parseSessionTime("Debug session time: Mon Nov 10 22:12:33.123 2025 (UTC - 8:00)")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 11, 11, 6, 12, 33, 123000000, time.UTC)))
}

func TestParseSessionTimeZeroOffset(t *testing.T) {
	ts, ok := parseSessionTime("Debug session time: Wed Nov 12 15:30:45.789 2025 (UTC + 0:00)")
	require.True(t, ok)
	assert.True(t, ts.Equal(time.Date(2025, 11, 12, 15, 30, 45, 789000000, time.UTC)))
}

func TestParseSessionTimeNoMatch(t *testing.T) {
	_, ok := parseSessionTime("Some other output without debug time")
	assert.False(t, ok)
}

func TestParseSystemUptime(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"System Uptime: 2 days 03:04:05.123", 2*86400 + 3*3600 + 4*60 + 5, true},
		{"System Uptime: 1 days 02:03:04.567", 1*86400 + 2*3600 + 3*60 + 4, true},
		{"System Uptime: 12:34:56.789", 12*3600 + 34*60 + 56, true},
		{"System Uptime: not available", 0, false},
		{"no uptime here", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseSystemUptime(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestFindFirst(t *testing.T) {
	text := "PROCESS_NAME:  test.exe\nEXCEPTION_CODE: (NTSTATUS) 0xc0000005\n"
	assert.Equal(t, "test.exe", findFirst(reProcessName, text))
	assert.Equal(t, "", findFirst(reProcessName, "nothing relevant"))
}
