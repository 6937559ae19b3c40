// File: internal/session/report.go
package session

import (
	"fmt"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PhaseRecord is one step-log entry: which phase ran and how it ended.
type PhaseRecord struct {
	Phase     string        `json:"phase"`
	Outcome   string        `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	ElapsedMS time.Duration `json:"elapsed_ms"`
}

// Report is the per-run artifact: the phase log plus the overall verdict.
type Report struct {
	SessionID  string        `json:"session_id"`
	Site       string        `json:"site"`
	Query      string        `json:"query"`
	AuthMode   string        `json:"auth_mode"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Phases     []PhaseRecord `json:"phases"`
	Success    bool          `json:"success"`
}

func (r *Report) record(phase Phase, res PhaseResult, started time.Time) {
	r.Phases = append(r.Phases, PhaseRecord{
		Phase:     phase.String(),
		Outcome:   res.Outcome.String(),
		Detail:    res.Detail,
		ElapsedMS: time.Since(started) / time.Millisecond,
	})
}

// Write serializes the report to the given path. A no-op when path is empty.
func (r *Report) Write(path string) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}
