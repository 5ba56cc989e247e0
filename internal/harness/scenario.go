package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/keel/internal/manifest"
)

// Scenario defines a conformance scenario: optional genesis, a flow of
// invocations, and assertions over the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Genesis is an inline genesis manifest applied before the flow.
	// Optional; contracts that need no roles run without one.
	Genesis *manifest.Manifest `yaml:"genesis,omitempty"`

	// Flow contains the invocations under test, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state and the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one invocation in the scenario flow.
type FlowStep struct {
	// Caller is the invoking principal address.
	Caller string `yaml:"caller"`

	// Invoke is the operation name (e.g. "token.transfer").
	Invoke string `yaml:"invoke"`

	// Args contains the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, the step must
	// settle ok.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected settlement of a flow step.
type ExpectClause struct {
	// Status is "ok" or a fault code such as "INSUFFICIENT_BALANCE".
	Status string `yaml:"status"`

	// Result is the expected result as canonical JSON (e.g. "1000",
	// "true", `["Hello","Dev"]`). Only checked when non-empty.
	Result string `yaml:"result,omitempty"`
}

// Assertion validates final state or the trace.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Address is the principal (used by balance).
	Address string `yaml:"address,omitempty"`

	// Amount is the expected value (used by balance, supply).
	Amount int64 `yaml:"amount,omitempty"`

	// Value is the expected lifecycle state (used by state).
	Value string `yaml:"value,omitempty"`

	// Topic is the event topic (used by event_count).
	Topic string `yaml:"topic,omitempty"`

	// Count is the expected number of occurrences (used by event_count).
	Count int `yaml:"count,omitempty"`

	// Op and Status select a trace entry (used by trace_contains).
	Op     string `yaml:"op,omitempty"`
	Status string `yaml:"status,omitempty"`
}

// Assertion type constants.
const (
	AssertBalance       = "balance"
	AssertSupply        = "supply"
	AssertState         = "state"
	AssertEventCount    = "event_count"
	AssertTraceContains = "trace_contains"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected to catch typos early.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	for i, step := range s.Flow {
		if step.Caller == "" {
			return fmt.Errorf("flow[%d]: caller is required", i)
		}
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertBalance, AssertSupply, AssertState, AssertEventCount, AssertTraceContains:
		default:
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
	}
	if s.Genesis != nil {
		if err := s.Genesis.Validate(); err != nil {
			return fmt.Errorf("genesis: %w", err)
		}
	}
	return nil
}
