package model

import (
	"fmt"
	"strings"
	"time"
)

// Level is the normalized severity of an event-log entry.
// The numeric values mirror the Windows event level codes.
type Level int

const (
	LevelCritical    Level = 1
	LevelError       Level = 2
	LevelWarning     Level = 3
	LevelInformation Level = 4
	LevelVerbose     Level = 5
)

// LevelFromCode maps a Windows event level code to a Level.
// Unmapped or missing codes default to Information.
func LevelFromCode(code int) Level {
	switch code {
	case 1, 2, 3, 4, 5:
		return Level(code)
	default:
		return LevelInformation
	}
}

// ParseLevel converts a user-facing level name ("critical", "error", ...)
// to a Level. The empty string and "all" return (0, false) meaning unfiltered.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return LevelCritical, true
	case "error":
		return LevelError, true
	case "warning":
		return LevelWarning, true
	case "info", "information":
		return LevelInformation, true
	case "verbose":
		return LevelVerbose, true
	default:
		return 0, false
	}
}

// AtLeast reports whether l is at least as severe as threshold.
// Severity ordering: Critical > Error > Warning > Information > Verbose.
func (l Level) AtLeast(threshold Level) bool {
	return l <= threshold
}

func (l Level) String() string {
	switch l {
	case LevelCritical:
		return "Critical"
	case LevelError:
		return "Error"
	case LevelWarning:
		return "Warning"
	case LevelInformation:
		return "Information"
	case LevelVerbose:
		return "Verbose"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// EventRecord is one decoded event-log entry. Records are values: created once
// by the decoder and never mutated as they flow through merge/filter/correlate.
type EventRecord struct {
	RecordNumber uint64    `json:"record_number"` // file-local record id, unique within FilePath
	Timestamp    time.Time `json:"timestamp"`     // always UTC
	EventID      int       `json:"event_id"`
	Source       string    `json:"source"` // provider name
	Level        Level     `json:"level"`
	Message      string    `json:"message"`
	FilePath     string    `json:"file_path"`               // originating .evtx file
	ComputerName string    `json:"computer_name,omitempty"`
	UserSID      string    `json:"user_sid,omitempty"`
}

// Validate checks the EventRecord invariants.
func (e EventRecord) Validate() error {
	if e.RecordNumber == 0 {
		return fmt.Errorf("event record: record number must be greater than 0")
	}
	if e.EventID <= 0 {
		return fmt.Errorf("event record: event id must be greater than 0")
	}
	if e.Source == "" {
		return fmt.Errorf("event record: source cannot be empty")
	}
	if e.Message == "" {
		return fmt.Errorf("event record: message cannot be empty")
	}
	if e.FilePath == "" {
		return fmt.Errorf("event record: file path cannot be empty")
	}
	return nil
}

// IsErrorOrCritical reports whether the record is Error or Critical level.
func (e EventRecord) IsErrorOrCritical() bool {
	return e.Level == LevelCritical || e.Level == LevelError
}

// WithinRange reports whether the record's timestamp falls inside
// [start, end], inclusive on both ends.
func (e EventRecord) WithinRange(start, end time.Time) bool {
	return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
}
