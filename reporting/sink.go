// Package reporting persists run reports to disk. Sinks complement the
// console output: the summary written at the end of a run survives scrollback
// and can be archived by CI.
package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/erikdesjardins/testharness/runner"
)

// Sink persists one completed run report.
type Sink interface {
	Complete(report *runner.Report) error
}

// runDir returns the per-run output directory, creating it if needed.
func runDir(baseDir, runID string) (string, error) {
	dir := filepath.Join(baseDir, "testrun-"+runID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	return dir, nil
}

// TextSummarySink writes the plain-text run summary to
// <baseDir>/testrun-<runID>/summary.log.
type TextSummarySink struct {
	baseDir string
}

func NewTextSummarySink(baseDir string) *TextSummarySink {
	return &TextSummarySink{baseDir: baseDir}
}

func (s *TextSummarySink) Complete(report *runner.Report) error {
	dir, err := runDir(s.baseDir, report.RunID)
	if err != nil {
		return err
	}

	summaryFile := filepath.Join(dir, "summary.log")
	if err := os.WriteFile(summaryFile, []byte(report.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary file: %w", err)
	}
	return nil
}

// JSONSink writes a machine-readable result file to
// <baseDir>/testrun-<runID>/results.json.
type JSONSink struct {
	baseDir string
}

func NewJSONSink(baseDir string) *JSONSink {
	return &JSONSink{baseDir: baseDir}
}

// jsonReport is the serialized report shape. Errors are flattened to strings
// so the file round-trips without custom unmarshaling.
type jsonReport struct {
	RunID    string       `json:"run_id"`
	Status   string       `json:"status"`
	Duration float64      `json:"duration_seconds"`
	Stats    jsonStats    `json:"stats"`
	Tests    []jsonResult `json:"tests"`
}

type jsonStats struct {
	Total           int `json:"total"`
	Passed          int `json:"passed"`
	Failed          int `json:"failed"`
	Ignored         int `json:"ignored"`
	AllowedFailures int `json:"allowed_failures"`
	TimedOut        int `json:"timed_out"`
}

type jsonResult struct {
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Status   string  `json:"status"`
	Error    string  `json:"error,omitempty"`
	Duration float64 `json:"duration_seconds,omitempty"`
	Output   string  `json:"output,omitempty"`
}

func (s *JSONSink) Complete(report *runner.Report) error {
	dir, err := runDir(s.baseDir, report.RunID)
	if err != nil {
		return err
	}

	out := jsonReport{
		RunID:    report.RunID,
		Status:   string(report.Status),
		Duration: report.Duration.Seconds(),
		Stats: jsonStats{
			Total:           report.Stats.Total,
			Passed:          report.Stats.Passed,
			Failed:          report.Stats.Failed,
			Ignored:         report.Stats.Ignored,
			AllowedFailures: report.Stats.AllowedFailures,
			TimedOut:        report.Stats.TimedOut,
		},
		Tests: make([]jsonResult, 0, len(report.Results)),
	}
	for _, result := range report.Results {
		entry := jsonResult{
			Name:     result.Descriptor.Name,
			Kind:     string(result.Descriptor.Kind),
			Status:   string(result.Status),
			Duration: result.Duration.Seconds(),
			Output:   result.Output,
		}
		if result.Error != nil {
			entry.Error = result.Error.Error()
		}
		out.Tests = append(out.Tests, entry)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}

	resultsFile := filepath.Join(dir, "results.json")
	if err := os.WriteFile(resultsFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write results file: %w", err)
	}
	return nil
}

// WriteAll runs every sink appropriate for baseDir against the report. The
// report is written even for failed runs; that is when it matters most.
func WriteAll(baseDir string, report *runner.Report) error {
	sinks := []Sink{
		NewTextSummarySink(baseDir),
		NewJSONSink(baseDir),
	}
	for _, sink := range sinks {
		if err := sink.Complete(report); err != nil {
			return err
		}
	}
	return nil
}

