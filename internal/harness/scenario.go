package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/pokepad/internal/report"
)

// Scenario is a scripted command timeline plus assertions on the trace
// it produces.
type Scenario struct {
	// Name uniquely identifies this scenario. Golden files are named after it.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Sequences lists CUE sequence directories to compile and register.
	// Paths are relative to the scenario file location.
	Sequences []string `yaml:"sequences,omitempty"`

	// Tick is the engine quantum. Zero means engine.DefaultTick.
	Tick time.Duration `yaml:"tick,omitempty"`

	// Duration is the simulated run time. The engine ticks at 0, Tick,
	// 2*Tick, ... up to and including Duration.
	Duration time.Duration `yaml:"duration"`

	// Steps are the commands typed during the run, in time order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one command issued at a point in simulated time. It is
// applied before the engine tick at that time.
type Step struct {
	At      time.Duration `yaml:"at"`
	Command string        `yaml:"command"`

	// ExpectError marks a command the parser or engine must reject.
	ExpectError bool `yaml:"expect_error,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of press_count, completed, neutral_at, report_at, active_at.
	Type string `yaml:"type"`

	// At is the inspected time (neutral_at, report_at, active_at).
	At time.Duration `yaml:"at,omitempty"`

	// From and To bound press_count. To zero means the end of the trace.
	From time.Duration `yaml:"from,omitempty"`
	To   time.Duration `yaml:"to,omitempty"`

	// Command is a symbolic command name such as A or HAT_UP
	// (press_count, report_at).
	Command string `yaml:"command,omitempty"`

	// Report is a serial report line (report_at).
	Report string `yaml:"report,omitempty"`

	// Task is a task name (completed, active_at).
	Task string `yaml:"task,omitempty"`

	// Count is the expected number of occurrences (press_count, completed).
	Count int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertPressCount = "press_count"
	AssertCompleted  = "completed"
	AssertNeutralAt  = "neutral_at"
	AssertReportAt   = "report_at"
	AssertActiveAt   = "active_at"
)

// LoadScenario reads and parses a scenario YAML file. Sequence
// directories are resolved relative to the file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving sequence directories relative to basePath.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve paths BEFORE validation
	for i, dir := range scenario.Sequences {
		if !filepath.IsAbs(dir) && basePath != "" {
			scenario.Sequences[i] = filepath.Join(basePath, dir)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarioDir loads every *.yaml and *.yml file in dir, sorted by
// file name.
func LoadScenarioDir(dir string) ([]*Scenario, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}

	if s.Tick < 0 {
		return fmt.Errorf("tick must not be negative")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for _, dir := range s.Sequences {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("sequence directory not found: %s", dir)
		}
	}

	var last time.Duration
	for i, step := range s.Steps {
		if step.Command == "" {
			return fmt.Errorf("steps[%d]: command is required", i)
		}
		if step.At < 0 {
			return fmt.Errorf("steps[%d]: at must not be negative", i)
		}
		if step.At < last {
			return fmt.Errorf("steps[%d]: at %v is before the previous step (%v)", i, step.At, last)
		}
		if step.At > s.Duration {
			return fmt.Errorf("steps[%d]: at %v is after the end of the run (%v)", i, step.At, s.Duration)
		}
		last = step.At
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.At < 0 || a.From < 0 || a.To < 0 {
		return fmt.Errorf("assertions[%d]: times must not be negative", index)
	}

	switch a.Type {
	case AssertPressCount:
		if a.Command == "" {
			return fmt.Errorf("assertions[%d]: command is required for press_count", index)
		}
		if _, err := report.ParseCommand(a.Command); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for press_count", index)
		}
		if a.To != 0 && a.To < a.From {
			return fmt.Errorf("assertions[%d]: to must not be before from", index)
		}
	case AssertCompleted:
		if a.Task == "" {
			return fmt.Errorf("assertions[%d]: task is required for completed", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for completed", index)
		}
	case AssertNeutralAt:
	case AssertReportAt:
		if (a.Report == "") == (a.Command == "") {
			return fmt.Errorf("assertions[%d]: report_at needs exactly one of report or command", index)
		}
		if a.Report != "" {
			if _, err := report.ParseSerial(a.Report); err != nil {
				return fmt.Errorf("assertions[%d]: %w", index, err)
			}
		} else if _, err := report.ParseCommand(a.Command); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertActiveAt:
		if a.Task == "" {
			return fmt.Errorf("assertions[%d]: task is required for active_at", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
