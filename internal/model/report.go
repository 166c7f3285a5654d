package model

import (
	"fmt"
	"time"
)

// AnalysisReport is the root-cause summary produced by the LLM analyzer.
type AnalysisReport struct {
	SessionID        string    `json:"session_id"`
	GeneratedAt      time.Time `json:"generated_at"`
	ModelUsed        string    `json:"model_used"`
	RootCauseSummary string    `json:"root_cause_summary"`
	DetailedAnalysis string    `json:"detailed_analysis"`
	EventTimeline    []string  `json:"event_timeline"`
	RemediationSteps []string  `json:"remediation_steps"`
	ProcessingTime   float64   `json:"processing_time_seconds"`
	TokenUsage       *int      `json:"token_usage,omitempty"`
}

// Validate checks the AnalysisReport invariants.
func (r AnalysisReport) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("analysis report: session id cannot be empty")
	}
	if r.ModelUsed == "" {
		return fmt.Errorf("analysis report: model cannot be empty")
	}
	if r.RootCauseSummary == "" {
		return fmt.Errorf("analysis report: root cause summary cannot be empty")
	}
	if r.ProcessingTime <= 0 {
		return fmt.Errorf("analysis report: processing time must be greater than 0")
	}
	return nil
}
