package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/custody/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario name filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenario files against fresh ledgers",
		Long: `Run every YAML scenario in a directory. Each scenario runs on its own
temporary ledger with a deterministic clock and transaction ids; --db is not
used. When <scenarios-dir>/golden/<name>.golden exists, the trace must match it.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios, etc.)

Examples:
  custody test ./scenarios
  custody test ./scenarios --filter "listing_*"
  custody test ./scenarios --update
  custody test ./scenarios --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by name glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}

	scenarios, err := harness.LoadDir(dir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	if opts.Filter != "" {
		if _, err := filepath.Match(opts.Filter, ""); err != nil {
			return WrapExitError(ExitCommandError, "invalid filter pattern", err)
		}
		kept := scenarios[:0]
		for _, s := range scenarios {
			if ok, _ := filepath.Match(opts.Filter, s.Name); ok {
				kept = append(kept, s)
			}
		}
		scenarios = kept
	}

	result := TestResult{
		Scenarios: make([]ScenarioResult, 0, len(scenarios)),
		Total:     len(scenarios),
	}
	for _, s := range scenarios {
		r := runScenario(s, dir, opts, cmd)
		result.Scenarios = append(result.Scenarios, r)
		if r.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if opts.Format == "json" {
		return outputTestJSON(cmd, result)
	}
	return outputTestText(cmd, result)
}

func runScenario(s *harness.Scenario, dir string, opts *TestOptions, cmd *cobra.Command) ScenarioResult {
	w := cmd.OutOrStdout()
	text := opts.Format != "json"

	fail := func(errs ...string) ScenarioResult {
		if text {
			fmt.Fprintf(w, "FAIL %s\n", s.Name)
			for _, e := range errs {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
		return ScenarioResult{Name: s.Name, Pass: false, Errors: errs}
	}

	var runOpts []harness.Option
	if opts.Verbose {
		runOpts = append(runOpts, harness.WithLogger(opts.Logger))
	}
	result, err := harness.Run(s, runOpts...)
	if err != nil {
		return fail(fmt.Sprintf("execution failed: %v", err))
	}

	snapshot, err := harness.Snapshot(s.Name, result)
	if err != nil {
		return fail(fmt.Sprintf("failed to render trace: %v", err))
	}

	goldenPath := goldenFilePath(dir, s.Name)
	if opts.Update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return fail(fmt.Sprintf("failed to update golden file: %v", err))
		}
		opts.Logger.Debug("golden file updated", "scenario", s.Name, "path", goldenPath)
	} else if want, err := os.ReadFile(goldenPath); err == nil {
		if !bytes.Equal(want, snapshot) {
			result.AddError("trace does not match golden file (run with --update to regenerate)")
		}
	} else if !os.IsNotExist(err) {
		return fail(fmt.Sprintf("failed to read golden file: %v", err))
	}

	if !result.Pass {
		return fail(result.Errors...)
	}
	if text {
		fmt.Fprintf(w, "ok   %s\n", s.Name)
	}
	return ScenarioResult{Name: s.Name, Pass: true}
}

// goldenFilePath returns the golden file for a scenario name.
func goldenFilePath(dir, name string) string {
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	response := CLIResponse{Status: "ok", Data: result}
	if result.Failed > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	f := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
	if err := f.encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			Reported: true,
		}
	}
	return nil
}

// outputTestText outputs the test summary as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
