// Package minidump extracts a crash record from a well-formed Windows
// minidump file by reading its binary stream directory directly.
//
// The extractor is deliberately fault-tolerant below the file level: a stream
// that fails to parse appends a message to the record's ParseErrors and the
// remaining streams are still consumed. Only a file that is missing, empty,
// or structurally not a minidump fails the whole parse.
package minidump

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"github.com/crimson-sun/winfault/internal/model"
)

// maxStreams bounds the stream directory; anything larger is corruption.
const maxStreams = 4096

// maxModuleEntries bounds module-list iteration when searching for the
// faulting module. Name collection is bounded separately by the model cap.
const maxModuleEntries = 1024

// Extract parses the minidump at path into a CrashRecord.
func Extract(path string) (*model.CrashRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("minidump: %q: %w", path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("minidump: open %q: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("minidump: stat %q: %w", path, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("minidump: %q: %w", path, model.ErrEmptyFile)
	}

	p := &parser{r: f, size: info.Size()}
	rec, err := p.parse()
	if err != nil {
		return nil, fmt.Errorf("minidump: parse %q: %w: %v", path, model.ErrInvalidFormat, err)
	}

	rec.FilePath = path
	rec.FileSizeBytes = info.Size()
	slog.Debug("minidump extracted",
		"path", path,
		"crash_type", rec.CrashType,
		"architecture", rec.Architecture,
		"parse_errors", len(rec.ParseErrors))
	return rec, nil
}

type parser struct {
	r    io.ReaderAt
	size int64
}

func (p *parser) parse() (*model.CrashRecord, error) {
	var hdr header
	if err := p.readStruct(0, 32, &hdr); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if hdr.Signature != Signature {
		return nil, fmt.Errorf("bad signature 0x%08X", hdr.Signature)
	}
	if hdr.NumberOfStreams > maxStreams {
		return nil, fmt.Errorf("implausible stream count %d", hdr.NumberOfStreams)
	}

	// A stream count of zero is structurally valid; every field then keeps
	// its default.
	var dir []directoryEntry
	if hdr.NumberOfStreams > 0 {
		dir = make([]directoryEntry, hdr.NumberOfStreams)
		if err := p.readStruct(int64(hdr.StreamDirectoryRVA), int64(hdr.NumberOfStreams)*12, &dir); err != nil {
			return nil, fmt.Errorf("stream directory: %w", err)
		}
	}

	rec := &model.CrashRecord{
		CrashType:    model.CrashUnknown,
		ProcessName:  "Unknown",
		OSVersion:    "Windows (version unknown)",
		Architecture: "x64",
	}

	if hdr.TimeDateStamp != 0 {
		rec.Timestamp = time.Unix(int64(hdr.TimeDateStamp), 0).UTC()
	} else {
		rec.Timestamp = time.Now().UTC()
		rec.ParseErrors = append(rec.ParseErrors, "header has no timestamp, using current time")
	}

	// First directory entry of each type wins.
	streams := map[uint32]directoryEntry{}
	for _, d := range dir {
		if _, seen := streams[d.StreamType]; !seen {
			streams[d.StreamType] = d
		}
	}

	// Each named extraction step succeeds or records why it could not.
	if d, ok := streams[systemInfoStream]; ok {
		p.extractSystemInfo(d, rec)
	}
	if d, ok := streams[exceptionStream]; ok {
		p.extractException(d, rec)
	}
	if d, ok := streams[moduleListStream]; ok {
		p.extractModules(d, rec)
	}
	if d, ok := streams[threadListStream]; ok {
		p.extractStack(d, rec)
	}
	if d, ok := streams[miscInfoStream]; ok {
		p.extractMiscInfo(d, rec)
	}

	return rec, nil
}

func (p *parser) extractSystemInfo(d directoryEntry, rec *model.CrashRecord) {
	var si systemInfo
	if err := p.readStruct(int64(d.RVA), int64(d.DataSize), &si); err != nil {
		rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("system info stream: %v", err))
		return
	}

	switch si.ProcessorArchitecture {
	case archAMD64:
		rec.Architecture = "x64"
	case archIntel:
		rec.Architecture = "x86"
	case archARM:
		rec.Architecture = "ARM"
	case archARM64:
		rec.Architecture = "ARM64"
	default:
		// Unknown code: keep the x64 default assumption.
		rec.ParseErrors = append(rec.ParseErrors,
			fmt.Sprintf("unknown processor architecture code %d", si.ProcessorArchitecture))
	}

	rec.OSBuild = fmt.Sprintf("%d", si.BuildNumber)
	rec.OSVersion = osVersionLabel(si.MajorVersion, si.MinorVersion, si.BuildNumber)
}

func (p *parser) extractException(d directoryEntry, rec *model.CrashRecord) {
	var exc exceptionInfo
	if err := p.readStruct(int64(d.RVA), int64(d.DataSize), &exc); err != nil {
		rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("exception stream: %v", err))
		return
	}

	rec.CrashType = model.CrashException
	rec.ErrorCode = fmt.Sprintf("0x%08X", exc.ExceptionCode)
	rec.FaultingAddress = fmt.Sprintf("0x%016X", exc.ExceptionAddress)
	if exc.ThreadID > 0 {
		tid := int(exc.ThreadID)
		rec.ThreadID = &tid
	}
}

func (p *parser) extractModules(d directoryEntry, rec *model.CrashRecord) {
	var count uint32
	if err := p.readStruct(int64(d.RVA), 4, &count); err != nil {
		rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("module list stream: %v", err))
		return
	}
	if count == 0 {
		return
	}
	if count > maxModuleEntries {
		rec.ParseErrors = append(rec.ParseErrors,
			fmt.Sprintf("module list truncated from %d to %d entries", count, maxModuleEntries))
		count = maxModuleEntries
	}

	var faultAddr uint64
	if rec.FaultingAddress != "" {
		fmt.Sscanf(rec.FaultingAddress, "0x%X", &faultAddr)
	}

	const entrySize = 108
	for i := uint32(0); i < count; i++ {
		var m moduleEntry
		off := int64(d.RVA) + 4 + int64(i)*entrySize
		if err := p.readStruct(off, entrySize, &m); err != nil {
			rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("module %d: %v", i, err))
			return
		}

		name, err := p.readUTF16String(int64(m.ModuleNameRVA))
		if err != nil {
			rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("module %d name: %v", i, err))
			name = ""
		}
		base := baseName(name)

		// Process name comes from the first module's base filename.
		if i == 0 && base != "" {
			rec.ProcessName = base
		}
		if len(rec.LoadedModules) < model.MaxLoadedModules && base != "" {
			rec.LoadedModules = append(rec.LoadedModules, base)
		}
		if faultAddr != 0 && rec.FaultingModule == "" &&
			faultAddr >= m.BaseOfImage && faultAddr < m.BaseOfImage+uint64(m.SizeOfImage) {
			rec.FaultingModule = base
		}
	}
}

func (p *parser) extractStack(d directoryEntry, rec *model.CrashRecord) {
	var count uint32
	if err := p.readStruct(int64(d.RVA), 4, &count); err != nil {
		rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("thread list stream: %v", err))
		return
	}
	if count == 0 {
		return
	}

	const entrySize = 48
	var target *threadEntry
	for i := uint32(0); i < count; i++ {
		var th threadEntry
		off := int64(d.RVA) + 4 + int64(i)*entrySize
		if err := p.readStruct(off, entrySize, &th); err != nil {
			rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("thread %d: %v", i, err))
			break
		}
		if i == 0 {
			first := th
			target = &first
		}
		if rec.ThreadID != nil && int(th.ThreadID) == *rec.ThreadID {
			match := th
			target = &match
			break
		}
	}
	if target == nil {
		return
	}

	// Best-effort summary only: walking frames needs symbols (a non-goal).
	var stack []string
	if target.Stack.Memory.DataSize > 0 {
		stack = append(stack,
			fmt.Sprintf("Stack memory region: 0x%016X", target.Stack.StartOfMemoryRange),
			fmt.Sprintf("Stack size: %d bytes", target.Stack.Memory.DataSize))
	} else {
		stack = append(stack, "Stack trace requires symbol files for detailed analysis")
	}
	if len(stack) > model.MaxStackLines {
		stack = stack[:model.MaxStackLines]
	}
	rec.StackTrace = stack
}

func (p *parser) extractMiscInfo(d directoryEntry, rec *model.CrashRecord) {
	var mi miscInfo
	if err := p.readStruct(int64(d.RVA), int64(d.DataSize), &mi); err != nil {
		rec.ParseErrors = append(rec.ParseErrors, fmt.Sprintf("misc info stream: %v", err))
		return
	}
	if mi.Flags1&miscInfoProcessID != 0 && mi.ProcessID > 0 {
		pid := int(mi.ProcessID)
		rec.ProcessID = &pid
	}
}

// readStruct decodes a little-endian structure of at most limit bytes at off.
func (p *parser) readStruct(off, limit int64, v any) error {
	if off < 0 || off >= p.size {
		return fmt.Errorf("offset %d out of range (file size %d)", off, p.size)
	}
	sr := io.NewSectionReader(p.r, off, limit)
	return binary.Read(sr, binary.LittleEndian, v)
}

// readUTF16String reads a MINIDUMP_STRING: a 4-byte byte length followed by
// that many bytes of UTF-16LE text.
func (p *parser) readUTF16String(off int64) (string, error) {
	var length uint32
	if err := p.readStruct(off, 4, &length); err != nil {
		return "", err
	}
	if length == 0 {
		return "", nil
	}
	if int64(length) > p.size-off-4 {
		return "", fmt.Errorf("string length %d exceeds file bounds", length)
	}

	raw := make([]byte, length)
	if _, err := p.r.ReadAt(raw, off+4); err != nil {
		return "", err
	}
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	decoded, err := dec.Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// osVersionLabel maps major/minor/build to the marketing label.
func osVersionLabel(major, minor, build uint32) string {
	switch {
	case major == 10 && minor == 0:
		return fmt.Sprintf("Windows 10/11 Build %d", build)
	case major == 6 && minor == 3:
		return fmt.Sprintf("Windows 8.1 Build %d", build)
	case major == 6 && minor == 2:
		return fmt.Sprintf("Windows 8 Build %d", build)
	case major == 6 && minor == 1:
		return fmt.Sprintf("Windows 7 Build %d", build)
	default:
		return fmt.Sprintf("Windows %d.%d Build %d", major, minor, build)
	}
}

// baseName returns the final path element of a Windows or POSIX path.
func baseName(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		return p[i+1:]
	}
	return p
}
