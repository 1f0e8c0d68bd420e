package harness

import (
	"fmt"
	"reflect"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		if event.Type == EventInvocation {
			fmt.Fprintf(&buf, "  [%d] %s %s %v -> %s\n", i/2+1, event.Kind, event.Action, event.Args, outcomeAt(e.Trace, i))
		}
	}

	return buf.String()
}

// outcomeAt returns the outcome of the completion following the invocation
// at index i, or "" if there is none.
func outcomeAt(trace []TraceEvent, i int) string {
	if i+1 < len(trace) && trace[i+1].Type == EventCompletion {
		return trace[i+1].Outcome
	}
	return ""
}

// matches reports whether the invocation at index i satisfies the
// assertion's action, args and outcome filters.
func matches(trace []TraceEvent, i int, a Assertion) bool {
	ev := trace[i]
	if ev.Type != EventInvocation || ev.Action != a.Action {
		return false
	}
	if a.Outcome != "" && outcomeAt(trace, i) != a.Outcome {
		return false
	}
	return matchArgs(ev.Args, a.Args)
}

// assertTraceContains checks the trace has at least one matching invocation.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for i := range trace {
		if matches(trace, i, a) {
			return nil
		}
	}

	expected := fmt.Sprintf("action %s with args %v", a.Action, a.Args)
	if a.Outcome != "" {
		expected += " and outcome " + a.Outcome
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the first invocation of each action appears
// in the given order. Other invocations may come in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for i, event := range trace {
		if event.Type != EventInvocation {
			continue
		}
		if _, seen := positions[event.Action]; !seen {
			positions[event.Action] = i/2 + 1
		}
	}

	for _, action := range a.Actions {
		if _, ok := positions[action]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   fmt.Sprintf("missing action: %s", action),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks the number of matching invocations.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for i := range trace {
		if matches(trace, i, a) {
			count++
		}
	}

	if count != a.Count {
		what := a.Action
		if a.Outcome != "" {
			what += " (" + a.Outcome + ")"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", a.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// matchArgs checks that actual contains every expected key with an equal
// value. Nested objects are compared the same way.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok {
			return false
		}
		if !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(actual, expected any) bool {
	am, aok := actual.(map[string]any)
	em, eok := expected.(map[string]any)
	if aok && eok {
		return matchArgs(am, em)
	}
	return reflect.DeepEqual(actual, expected)
}

// EvaluateAssertions evaluates all assertions against a trace and returns
// a message for each that failed.
func EvaluateAssertions(trace []TraceEvent, assertions []Assertion) []string {
	var errors []string

	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}
