// Package windbg extracts crash records from dumps the minidump parser
// cannot handle (full and kernel dumps) by driving an external debugger
// (cdb or kd) and pattern-matching its transcript.
package windbg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/crimson-sun/winfault/internal/model"
)

// analysisCommands is the fixed command sequence handed to the debugger.
const analysisCommands = ".symfix; .symopt+ 0x40; .reload; !analyze -v; .ecxr; kv; lm; .time; q"

// DefaultTimeout applies when the configured timeout is unset.
const DefaultTimeout = 300 * time.Second

// Config carries the fully resolved debugger settings. The extractor performs
// no environment lookups itself: paths, symbol path, and timeout all arrive
// here from the configuration layer.
type Config struct {
	CdbPath    string // general-purpose debugger, tried first
	KdPath     string // kernel-capable debugger, the fallback
	SymbolPath string
	Timeout    time.Duration
}

// Extractor runs the debugger and turns its transcript into a CrashRecord.
type Extractor struct {
	cfg Config

	// runDebugger is swapped out by tests.
	runDebugger func(ctx context.Context, tool, dump string) (string, error)
}

// New creates an Extractor with the given resolved configuration.
func New(cfg Config) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	e := &Extractor{cfg: cfg}
	e.runDebugger = e.run
	return e
}

// Extract analyzes the dump at path via the debugger transcript.
//
// Policy: try cdb first; if its exit status signals failure, retry the same
// command set with kd and use whichever succeeded. A failed first attempt is
// not surfaced unless every attempt fails. Even then, extraction proceeds on
// whatever partial transcript was captured; only a wholly empty transcript
// is fatal.
func (e *Extractor) Extract(ctx context.Context, path string) (*model.CrashRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("windbg: %q: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("windbg: stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("windbg: %q: %w", path, model.ErrEmptyFile)
	}

	var tools []string
	for _, tool := range []string{e.cfg.CdbPath, e.cfg.KdPath} {
		if tool == "" {
			continue
		}
		if _, err := os.Stat(tool); err == nil {
			tools = append(tools, tool)
		}
	}
	if len(tools) == 0 {
		return nil, fmt.Errorf(
			"windbg: %w: install the Debugging Tools for Windows (Windows SDK) and set the cdb/kd paths in the configuration",
			model.ErrDebuggerUnavailable)
	}

	var transcript string
	var attemptErrs []string
	var lastErr error
	succeeded := false
	for _, tool := range tools {
		out, err := e.runDebugger(ctx, tool, path)
		if err == nil {
			transcript = out
			succeeded = true
			break
		}
		lastErr = err
		attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %v", tool, err))
		// Keep the best partial transcript in case every attempt fails.
		if len(out) > len(transcript) {
			transcript = out
		}
		slog.Debug("debugger attempt failed", "tool", tool, "error", err)
	}

	if !succeeded && transcript == "" {
		if errors.Is(lastErr, context.DeadlineExceeded) {
			return nil, fmt.Errorf("windbg: %w after %s", model.ErrDebuggerTimeout, e.cfg.Timeout)
		}
		return nil, fmt.Errorf("windbg: all debugger attempts failed: %w", lastErr)
	}

	rec := &model.CrashRecord{
		FilePath:      path,
		FileSizeBytes: info.Size(),
		CrashType:     model.CrashUnknown,
		ProcessName:   "System",
		OSVersion:     "Windows (WinDbg)",
		Architecture:  "x64",
	}
	if !succeeded {
		rec.ParseErrors = append(rec.ParseErrors, attemptErrs...)
	}

	applyTranscript(transcript, rec)

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
		rec.ParseErrors = append(rec.ParseErrors, "transcript has no debug session time, using current time")
	}

	slog.Debug("windbg extracted",
		"path", path,
		"crash_type", rec.CrashType,
		"error_code", rec.ErrorCode,
		"parse_errors", len(rec.ParseErrors))
	return rec, nil
}

// run invokes one debugger binary with the analysis command sequence and
// returns its combined stdout/stderr. The per-invocation timeout terminates
// the subprocess rather than hanging the caller; whatever output was captured
// before the kill is returned alongside the error.
func (e *Extractor) run(ctx context.Context, tool, dump string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, tool, "-z", dump, "-y", e.cfg.SymbolPath, "-c", analysisCommands)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return string(out), err
	}
	return string(out), nil
}
