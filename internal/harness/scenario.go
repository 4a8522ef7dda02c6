package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/custody/internal/contract"
	"github.com/roach88/custody/internal/failure"
)

// Scenario is one conformance scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup runs before the steps. Setup steps must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Steps are the invocations under test.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final ledger and trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step invokes one contract function.
type Step struct {
	// Invoke is the contract function name.
	Invoke string `yaml:"invoke"`

	// Caller is the submitting identity. Defaults to DefaultCaller.
	Caller string `yaml:"caller,omitempty"`

	// Args are the positional string arguments.
	Args []string `yaml:"args,omitempty"`

	// Mode is "submit", "evaluate", or empty to let the gateway decide.
	Mode string `yaml:"mode,omitempty"`

	// Expect checks the outcome. Nil means the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected failure kind, e.g. ALREADY_EXISTS.
	Error string `yaml:"error,omitempty"`

	// Result is the exact expected payload.
	Result *string `yaml:"result,omitempty"`

	// Fields is a subset match on the payload decoded as a JSON object.
	Fields map[string]any `yaml:"fields,omitempty"`

	// Count is the expected length of the payload decoded as a JSON array.
	Count *int `yaml:"count,omitempty"`
}

// Assertion validates the final ledger or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Key is the ledger key (final_state, history_count).
	Key string `yaml:"key,omitempty"`

	// Expect holds the expected record fields (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (history_count, tx_count, trace_count).
	Count int `yaml:"count,omitempty"`

	// Function is the counted function (trace_count).
	Function string `yaml:"function,omitempty"`

	// Functions is the expected order (trace_order).
	Functions []string `yaml:"functions,omitempty"`
}

// Assertion type constants.
const (
	AssertFinalState   = "final_state"
	AssertHistoryCount = "history_count"
	AssertTxCount      = "tx_count"
	AssertTraceCount   = "trace_count"
	AssertTraceOrder   = "trace_order"
)

// Step modes.
const (
	ModeSubmit   = "submit"
	ModeEvaluate = "evaluate"
)

// DefaultCaller is the caller of steps that name none.
const DefaultCaller = "harness"

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScenario parses scenario YAML. Unknown fields are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

// LoadDir loads every *.yaml and *.yml scenario in dir, sorted by file name.
func LoadDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	names := make(map[string]string, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		if prev, ok := names[s.Name]; ok {
			return nil, fmt.Errorf("duplicate scenario name %q in %s and %s", s.Name, prev, p)
		}
		names[s.Name] = p
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Invoke == "" {
		return fmt.Errorf("invoke is required")
	}
	if !contract.Known(step.Invoke) {
		return fmt.Errorf("unknown function %q", step.Invoke)
	}
	switch step.Mode {
	case "", ModeSubmit, ModeEvaluate:
	default:
		return fmt.Errorf("unknown mode %q", step.Mode)
	}

	if e := step.Expect; e != nil {
		if e.Error != "" && !failure.Known(failure.Kind(e.Error)) {
			return fmt.Errorf("expect: unknown error kind %q", e.Error)
		}
		if e.Error != "" && (e.Result != nil || e.Fields != nil || e.Count != nil) {
			return fmt.Errorf("expect: error cannot be combined with result checks")
		}
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("type is required")
	case AssertFinalState:
		if a.Key == "" {
			return fmt.Errorf("key is required for final_state")
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("expect is required for final_state")
		}
	case AssertHistoryCount:
		if a.Key == "" {
			return fmt.Errorf("key is required for history_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for history_count")
		}
	case AssertTxCount:
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for tx_count")
		}
	case AssertTraceCount:
		if a.Function == "" {
			return fmt.Errorf("function is required for trace_count")
		}
		if a.Count < 0 {
			return fmt.Errorf("count must be non-negative for trace_count")
		}
	case AssertTraceOrder:
		if len(a.Functions) == 0 {
			return fmt.Errorf("functions list is required for trace_order")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
