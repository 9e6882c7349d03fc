package harness

import (
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/erikdesjardins/testharness/runner"
	"github.com/erikdesjardins/testharness/types"
)

// ResultFormatter is responsible for formatting and displaying run results.
type ResultFormatter interface {
	FormatResults(report *runner.Report) error
}

// ConsoleResultFormatter implements the ResultFormatter interface.
type ConsoleResultFormatter struct {
	logger log.Logger
}

// NewConsoleResultFormatter creates a new ConsoleResultFormatter.
func NewConsoleResultFormatter(logger log.Logger) *ConsoleResultFormatter {
	return &ConsoleResultFormatter{
		logger: logger,
	}
}

// FormatResults renders the summary table to stdout.
func (f *ConsoleResultFormatter) FormatResults(report *runner.Report) error {
	f.logger.Info("Printing results...")
	fmt.Println(f.render(report))
	return nil
}

// render builds the table as a string so it can be tested without capturing
// stdout.
func (f *ConsoleResultFormatter) render(report *runner.Report) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Test Results (run %s, %.1fs)", report.RunID, report.Duration.Seconds()))

	t.AppendHeader(table.Row{
		"Test", "Kind", "Duration", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, result := range report.Results {
		t.AppendRow(table.Row{
			result.Descriptor.Name,
			string(result.Descriptor.Kind),
			formatResultDuration(result),
			getResultString(result.Status),
			formatResultError(result),
		})
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d tests", report.Stats.Total),
		"",
		"",
		getResultString(report.Status),
		fmt.Sprintf("%d passed, %d failed, %d ignored, %d allowed, %d timed out",
			report.Stats.Passed, report.Stats.Failed, report.Stats.Ignored,
			report.Stats.AllowedFailures, report.Stats.TimedOut),
	})
	return t.Render()
}

func formatResultDuration(result *types.TestResult) string {
	if result.Duration == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", result.Duration.Seconds())
}

// formatResultError flattens a failure reason to a single sanitized line.
// Captured test output may contain ANSI escapes; those never belong in the
// table.
func formatResultError(result *types.TestResult) string {
	if result.Error == nil {
		return ""
	}
	msg := stripansi.Strip(result.Error.Error())
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}
	return msg
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "PASS"
	case types.TestStatusFail:
		return "FAIL"
	case types.TestStatusIgnored:
		return "IGNORED"
	case types.TestStatusAllowedFailure:
		return "ALLOWED"
	case types.TestStatusTimeout:
		return "TIMEOUT"
	}
	return strings.ToUpper(string(status))
}
