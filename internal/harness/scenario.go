package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ContractAccount names the ledger's own account in scenarios.
const ContractAccount = "contract"

// Scenario is a ledger test scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Denom overrides the ledger denomination.
	Denom string `yaml:"denom,omitempty"`

	// Prefix overrides the bech32 prefix used to derive account addresses.
	Prefix string `yaml:"prefix,omitempty"`

	// Balances funds accounts before anything else runs, keyed by account name.
	Balances map[string]string `yaml:"balances,omitempty"`

	// Instantiate creates the ledger record. It must succeed.
	// Scenarios without it start uninstantiated.
	Instantiate *InstantiateStep `yaml:"instantiate,omitempty"`

	// Steps run in order after instantiation.
	Steps []Step `yaml:"steps"`

	// Final checks the ledger state after the last step.
	Final *FinalState `yaml:"final,omitempty"`

	// Assertions validate the trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// InstantiateStep creates the ledger with an owner and initial limit.
type InstantiateStep struct {
	Sender string `yaml:"sender"`
	Limit  string `yaml:"limit"`
}

// Step is one request. Exactly one of Execute, Sudo and Query is set, each
// holding the message with its variant as the only key.
type Step struct {
	Execute map[string]any `yaml:"execute,omitempty"`
	Sudo    map[string]any `yaml:"sudo,omitempty"`
	Query   map[string]any `yaml:"query,omitempty"`

	// Sender is the account name of the caller. Used by execute only.
	Sender string `yaml:"sender,omitempty"`

	// Expect checks the outcome. Without it the step must succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Error is the expected error code. Empty means success.
	Error string `yaml:"error,omitempty"`

	// Attributes must all be present on the response (subset match).
	Attributes map[string]string `yaml:"attributes,omitempty"`

	// Messages must equal the emitted transfers exactly, in order.
	// Nil skips the check.
	Messages []ExpectMessage `yaml:"messages,omitempty"`

	// Data must equal the query answer.
	Data map[string]any `yaml:"data,omitempty"`
}

// ExpectMessage is an expected transfer in the ledger denomination.
type ExpectMessage struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Amount string `yaml:"amount"`
}

// FinalState is the ledger state expected after the last step.
type FinalState struct {
	Limit    string            `yaml:"limit,omitempty"`
	Owner    string            `yaml:"owner,omitempty"`
	Balances map[string]string `yaml:"balances,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Action is the invocation action (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args must be a subset of the invocation args (trace_contains).
	Args map[string]any `yaml:"args,omitempty"`

	// Outcome, if set, must match the invocation's completion
	// (trace_contains, trace_count).
	Outcome string `yaml:"outcome,omitempty"`

	// Count is the expected number of matching invocations (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected order (trace_order).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// kind returns the request kind of the step and its message.
func (s Step) kind() (string, map[string]any) {
	switch {
	case s.Execute != nil:
		return "execute", s.Execute
	case s.Sudo != nil:
		return "sudo", s.Sudo
	case s.Query != nil:
		return "query", s.Query
	}
	return "", nil
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
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

	if s.Instantiate != nil {
		if s.Instantiate.Sender == "" {
			return fmt.Errorf("instantiate: sender is required")
		}
		if s.Instantiate.Limit == "" {
			return fmt.Errorf("instantiate: limit is required")
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	set := 0
	for _, m := range []map[string]any{step.Execute, step.Sudo, step.Query} {
		if m != nil {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of execute, sudo, query is required", i)
	}

	kind, _ := step.kind()
	if kind == "execute" && step.Sender == "" {
		return fmt.Errorf("steps[%d]: execute requires sender", i)
	}
	if kind != "execute" && step.Sender != "" {
		return fmt.Errorf("steps[%d]: sender is only valid for execute", i)
	}
	if step.Expect != nil && step.Expect.Data != nil && kind != "query" {
		return fmt.Errorf("steps[%d]: expect.data is only valid for query", i)
	}
	return nil
}

func validateAssertion(i int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", i)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", i)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", i)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", i)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", i)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
	}
	return nil
}
