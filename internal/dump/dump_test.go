package dump

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crimson-sun/winfault/internal/dump/windbg"
	"github.com/crimson-sun/winfault/internal/model"
)

func write(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestMagicRouting(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		minidump bool
	}{
		{"minidump magic", []byte("MDMPxxxxxxxx"), true},
		{"kernel dump magic", []byte("PAGEDU64xxxx"), false},
		{"arbitrary bytes", []byte{0x00, 0x01, 0x02, 0x03, 0x04}, false},
		{"short file", []byte("MD"), false},
		{"empty file", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hasMinidumpMagic(write(t, "f.dmp", tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.minidump, got)
		})
	}
}

func TestExtractMissingFile(t *testing.T) {
	e := New(windbg.Config{})
	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "nope.dmp"))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestExtractRoutesMinidumpMagicToMinidumpParser(t *testing.T) {
	// Magic alone is not a valid minidump: the error must come from the
	// minidump parser, proving the routing decision.
	e := New(windbg.Config{})
	_, err := e.Extract(context.Background(), write(t, "f.dmp", []byte("MDMP but truncated")))
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrInvalidFormat)
}

func TestExtractRoutesOtherBytesToDebugger(t *testing.T) {
	// No debugger configured: the debugger path reports unavailable,
	// proving non-minidump bytes were routed there.
	e := New(windbg.Config{})
	_, err := e.Extract(context.Background(), write(t, "f.dmp", []byte("PAGEDU64 full kernel dump")))
	assert.ErrorIs(t, err, model.ErrDebuggerUnavailable)
}

func TestExtractRoutesEmptyFileToDebugger(t *testing.T) {
	e := New(windbg.Config{})
	_, err := e.Extract(context.Background(), write(t, "f.dmp", nil))
	assert.ErrorIs(t, err, model.ErrEmptyFile)
}
