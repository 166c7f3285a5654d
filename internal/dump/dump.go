// Package dump turns a Windows crash-dump file into a CrashRecord,
// dispatching on the file's leading bytes: minidumps are parsed directly,
// everything else goes through the external debugger transcript path.
package dump

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/crimson-sun/winfault/internal/dump/minidump"
	"github.com/crimson-sun/winfault/internal/dump/windbg"
	"github.com/crimson-sun/winfault/internal/model"
)

// minidumpMagic is the 4-byte signature that selects the minidump parser.
var minidumpMagic = []byte("MDMP")

// Extractor dispatches crash artifacts to the right extraction path.
type Extractor struct {
	windbg *windbg.Extractor
}

// New creates an Extractor. The debugger configuration is only consulted for
// files that are not minidumps.
func New(cfg windbg.Config) *Extractor {
	return &Extractor{windbg: windbg.New(cfg)}
}

// Extract parses the dump at path into a CrashRecord. Files starting with the
// minidump magic are parsed in-process; any other leading bytes (including a
// file too short to have four) select the debugger transcript path.
func (e *Extractor) Extract(ctx context.Context, path string) (*model.CrashRecord, error) {
	isMini, err := hasMinidumpMagic(path)
	if err != nil {
		return nil, err
	}
	if isMini {
		slog.Debug("dump routed to minidump parser", "path", path)
		return minidump.Extract(path)
	}
	slog.Debug("dump routed to debugger transcript parser", "path", path)
	return e.windbg.Extract(ctx, path)
}

func hasMinidumpMagic(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, fmt.Errorf("dump: %q: %w", path, model.ErrNotFound)
		}
		return false, fmt.Errorf("dump: open %q: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		// Shorter than four bytes: not a minidump.
		return false, nil
	}
	return string(magic) == string(minidumpMagic), nil
}
