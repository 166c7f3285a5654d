package windbg

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/crimson-sun/winfault/internal/model"
)

// Anchored, line-oriented patterns over the debugger transcript. Each logical
// field has its own pass so a missing field never blocks another. The
// transcript is free text from a proprietary tool: everything here is
// best-effort and unmatched fields stay null.
var (
	reProcessName    = regexp.MustCompile(`(?m)^PROCESS_NAME:\s*(.+?)\s*$`)
	reExceptionCode  = regexp.MustCompile(`(?m)^EXCEPTION_CODE:\s*\(.*?\)\s*(0x[0-9a-fA-F]+)`)
	reBugcheckStr    = regexp.MustCompile(`(?m)^BUGCHECK_STR:\s*(.+?)\s*$`)
	reBugcheckCode   = regexp.MustCompile(`(?m)^BUGCHECK_CODE:\s*(\S+)`)
	reBugcheckArg    = regexp.MustCompile("(?m)^\\s*Arg([1-4]):\\s*([0-9a-fA-Fx`]+)")
	reCurrentIRQL    = regexp.MustCompile(`(?m)^CURRENT_IRQL:\s*(\d+)`)
	reSymbolName     = regexp.MustCompile(`(?m)^SYMBOL_NAME:\s*(\S+)`)
	reFailureBucket  = regexp.MustCompile(`(?m)^FAILURE_BUCKET_ID:\s*(\S+)`)
	reDefaultBucket  = regexp.MustCompile(`(?m)^DEFAULT_BUCKET_ID:\s*(\S+)`)
	reProbablyCaused = regexp.MustCompile(`(?m)^Probably caused by\s*:\s*(\S+)`)
	reModuleName     = regexp.MustCompile(`(?m)^MODULE_NAME:\s*(\S+)`)
	reImageName      = regexp.MustCompile(`(?m)^IMAGE_NAME:\s*(\S+)`)
	reImageVersion   = regexp.MustCompile(`(?m)^IMAGE_VERSION:\s*(\S+)`)
	reModuleStamp    = regexp.MustCompile(`(?m)^\s*Timestamp:\s*(.+?)\s*$`)
	reFaultingThread = regexp.MustCompile(`(?m)^FAULTING_THREAD:\s*(?:0x)?([0-9a-fA-F]+)`)
	reOSBuild        = regexp.MustCompile(`(?m)^OSBUILD:\s*(\d+)`)
	reVertarget      = regexp.MustCompile(`(?m)^(Windows [^\r\n]*?Version (\d+)[^\r\n]*)$`)

	// `fffff803`2b5a0000 fffff803`2b666000   nt   (pdb symbols)
	reModuleLine = regexp.MustCompile("^([0-9a-fA-F`]+)\\s+([0-9a-fA-F`]+)\\s+(\\S+)")

	reStackHeader = regexp.MustCompile(`^(?:\s*#\s+\S+|Child-SP|ChildEBP)`)

	// Debug session time: Tue Nov 11 07:01:02.123 2025 (UTC + 9:00)
	reSessionTime = regexp.MustCompile(
		`Debug session time:\s+\w{3}\s+(\w{3})\s+(\d{1,2})\s+(\d{1,2}):(\d{2}):(\d{2})(?:\.(\d{1,3}))?\s+(\d{4})\s+\(UTC\s*([+-])\s*(\d{1,2}):(\d{2})\)`)

	reUptimeNA = regexp.MustCompile(`System Uptime:\s*not available`)
	reUptime   = regexp.MustCompile(`System Uptime:\s*(?:(\d+)\s+days?\s+)?(\d{1,2}):(\d{2}):(\d{2})(?:\.\d+)?`)
)

var monthsByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

func findFirst(re *regexp.Regexp, text string) string {
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

// applyTranscript runs every extraction pass over the transcript and fills
// the crash record. Fields already set (e.g. by an earlier attempt) are
// overwritten only when the pass matches.
func applyTranscript(text string, rec *model.CrashRecord) {
	if v := findFirst(reProcessName, text); v != "" {
		rec.ProcessName = v
	}

	excCode := findFirst(reExceptionCode, text)
	bugStr := findFirst(reBugcheckStr, text)
	switch {
	case excCode != "":
		rec.CrashType = model.CrashException
		rec.ErrorCode = excCode
	case bugStr != "":
		rec.CrashType = model.CrashBugcheck
		rec.ErrorCode = bugStr
	case findFirst(reBugcheckCode, text) != "":
		rec.CrashType = model.CrashBugcheck
		rec.ErrorCode = findFirst(reBugcheckCode, text)
	}

	for _, m := range reBugcheckArg.FindAllStringSubmatch(text, 4) {
		rec.BugcheckArgs = append(rec.BugcheckArgs, m[2])
	}

	if v := findFirst(reCurrentIRQL, text); v != "" {
		if irql, err := strconv.Atoi(v); err == nil {
			rec.IRQL = &irql
		}
	}

	if v := findFirst(reProbablyCaused, text); v != "" {
		rec.FaultingModule = v
	} else if v := findFirst(reModuleName, text); v != "" {
		rec.FaultingModule = v
	} else if v := findFirst(reImageName, text); v != "" {
		rec.FaultingModule = v
	}

	rec.SymbolName = findFirst(reSymbolName, text)
	rec.FailureBucketID = findFirst(reFailureBucket, text)
	rec.DefaultBucketID = findFirst(reDefaultBucket, text)
	rec.ModuleVersion = findFirst(reImageVersion, text)
	rec.ModuleTimestamp = findFirst(reModuleStamp, text)

	if v := findFirst(reFaultingThread, text); v != "" {
		if tid, err := strconv.ParseInt(v, 16, 64); err == nil && tid > 0 {
			t := int(tid)
			rec.ThreadID = &t
		}
	}

	if m := reVertarget.FindStringSubmatch(text); m != nil {
		rec.OSVersion = strings.TrimSpace(m[1])
		rec.OSBuild = m[2]
		for _, arch := range []string{"x64", "x86", "ARM64", "ARM"} {
			if strings.Contains(m[1], " "+arch) {
				rec.Architecture = arch
				break
			}
		}
	}
	if v := findFirst(reOSBuild, text); v != "" {
		rec.OSBuild = v
	}

	if mods := parseModuleList(text); len(mods) > 0 {
		rec.LoadedModules = mods
	}
	if stack := parseStackPreview(text); len(stack) > 0 {
		rec.StackTrace = stack
	}

	if ts, ok := parseSessionTime(text); ok {
		rec.Timestamp = ts
	}
	if secs, ok := parseSystemUptime(text); ok {
		rec.UptimeSeconds = &secs
	}
}

// parseSessionTime extracts the dump-internal crash instant from the
// `Debug session time` line and converts it to UTC. The zone label states how
// local time relates to UTC, so `(UTC + 9:00)` means local = UTC+9 and the
// offset is subtracted; `(UTC - 8:00)` means it is added.
func parseSessionTime(text string) (time.Time, bool) {
	m := reSessionTime.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	month, ok := monthsByName[m[1]]
	if !ok {
		return time.Time{}, false
	}

	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	second, _ := strconv.Atoi(m[5])
	year, _ := strconv.Atoi(m[7])

	nanos := 0
	if m[6] != "" {
		// Fractional part is milliseconds, possibly fewer than 3 digits.
		frac := m[6] + strings.Repeat("0", 3-len(m[6]))
		ms, _ := strconv.Atoi(frac)
		nanos = ms * int(time.Millisecond)
	}

	local := time.Date(year, month, day, hour, minute, second, nanos, time.UTC)

	offHours, _ := strconv.Atoi(m[9])
	offMinutes, _ := strconv.Atoi(m[10])
	offset := time.Duration(offHours)*time.Hour + time.Duration(offMinutes)*time.Minute
	if m[8] == "+" {
		return local.Add(-offset), true
	}
	return local.Add(offset), true
}

// parseSystemUptime extracts the uptime in seconds from the `System Uptime`
// line. "not available" is a valid no-value answer, not an error.
func parseSystemUptime(text string) (int64, bool) {
	if reUptimeNA.MatchString(text) {
		return 0, false
	}
	m := reUptime.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	days, _ := strconv.ParseInt(m[1], 10, 64) // empty string parses to 0
	hours, _ := strconv.ParseInt(m[2], 10, 64)
	minutes, _ := strconv.ParseInt(m[3], 10, 64)
	seconds, _ := strconv.ParseInt(m[4], 10, 64)
	return days*86400 + hours*3600 + minutes*60 + seconds, true
}

// parseModuleList pulls module names out of the `lm` section: lines whose
// first two fields are 64-bit load addresses.
func parseModuleList(text string) []string {
	var mods []string
	seen := map[string]bool{}
	for _, line := range strings.Split(text, "\n") {
		m := reModuleLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		name := m[3]
		if len(name) > 64 || seen[name] {
			continue
		}
		seen[name] = true
		mods = append(mods, name)
		if len(mods) >= model.MaxLoadedModules {
			break
		}
	}
	return mods
}

// parseStackPreview captures the frame lines following a `kv` header
// (`Child-SP`, `ChildEBP`, or a `# ...` column header), up to the first blank
// line or the stack bound.
func parseStackPreview(text string) []string {
	var stack []string
	capture := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if !capture && reStackHeader.MatchString(line) {
			capture = true
		}
		if !capture {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" && len(stack) > 0 {
			break
		}
		if trimmed != "" {
			stack = append(stack, trimmed)
		}
		if len(stack) >= model.MaxStackLines {
			break
		}
	}
	return stack
}
