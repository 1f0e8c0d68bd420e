package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tokensender/internal/ir"
)

// TraceSnapshot is the golden form of a scenario run.
type TraceSnapshot struct {
	ScenarioName string       `json:"scenario_name"`
	Trace        []TraceEvent `json:"trace"`
}

// toCanonicalMap converts the snapshot into plain values for
// ir.MarshalCanonical, dropping empty fields.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"type": event.Type,
			"seq":  event.Seq,
		}
		if event.Kind != "" {
			eventMap["kind"] = event.Kind
		}
		if event.Action != "" {
			eventMap["action"] = event.Action
		}
		if event.Sender != "" {
			eventMap["sender"] = event.Sender
		}
		if event.Args != nil {
			eventMap["args"] = event.Args
		}
		if event.Outcome != "" {
			eventMap["outcome"] = event.Outcome
		}
		if event.Result != nil {
			eventMap["result"] = event.Result
		}
		traceList[i] = eventMap
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
}

// Canonical returns the snapshot as canonical JSON.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden runs a scenario and compares its trace against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		Trace:        result.Trace,
	}
	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)
	return nil
}
