// Package session models one diagnostic run: the crash record, the selected
// events, the timeline, and the optional analysis report, persisted as JSON
// so runs can be reloaded and re-reported later.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/winfault/internal/model"
)

// Status of a session's lifecycle.
type Status string

const (
	StatusParsing   Status = "parsing"
	StatusAnalyzing Status = "analyzing"
	StatusComplete  Status = "complete"
	StatusFailed    Status = "failed"
)

// Session is one complete diagnostic run.
type Session struct {
	ID           string                `json:"session_id"`
	CreatedAt    time.Time             `json:"created_at"`
	Status       Status                `json:"status"`
	Crash        *model.CrashRecord    `json:"crash,omitempty"`
	Events       []model.EventRecord   `json:"events"`
	Timeline     []string              `json:"timeline,omitempty"`
	Report       *model.AnalysisReport `json:"report,omitempty"`
	ErrorMessage string                `json:"error_message,omitempty"`
}

// New creates a session in the parsing state with a fresh id.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    StatusParsing,
	}
}

// HasCrash reports whether a crash artifact was extracted.
func (s *Session) HasCrash() bool { return s.Crash != nil }

// HasReport reports whether an analysis report was generated.
func (s *Session) HasReport() bool { return s.Report != nil }

// TotalEvents returns the number of selected events.
func (s *Session) TotalEvents() int { return len(s.Events) }

// ErrorEventCount returns how many selected events are Error or Critical.
func (s *Session) ErrorEventCount() int {
	n := 0
	for _, e := range s.Events {
		if e.IsErrorOrCritical() {
			n++
		}
	}
	return n
}

// Save writes the session as pretty-printed JSON into dir and returns the
// file path.
func (s *Session) Save(dir string) (string, error) {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("session: marshal: %w", err)
	}
	path := filepath.Join(dir, s.ID+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("session: write %q: %w", path, err)
	}
	return path, nil
}

// Load reads a session back from a JSON file produced by Save.
func Load(path string) (*Session, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session: read %q: %w", path, err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("session: parse %q: %w", path, err)
	}
	return &s, nil
}
