package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/transfers.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := (&TraceSnapshot{ScenarioName: "x", Trace: first.Trace}).Canonical()
	require.NoError(t, err)
	b, err := (&TraceSnapshot{ScenarioName: "x", Trace: second.Trace}).Canonical()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReportsMismatches(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: mismatches
description: "Every expectation here is wrong"
balances:
  owner: "10"
instantiate:
  sender: owner
  limit: "5"
steps:
  - execute: {update_limit: {limit: "50"}}
    sender: owner
  - execute: {increment_limit: {}}
    sender: owner
    expect:
      error: UNAUTHORIZED
  - execute: {update_limit_without_check: {limit: "7"}}
    sender: owner
    expect:
      attributes: {action: update_limit}
  - query: {get_limit: {}}
    expect:
      data: {limit: "8"}
final:
  limit: "9"
  owner: alice
  balances: {owner: "11"}
assertions:
  - type: trace_count
    action: increment_limit
    count: 2
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	all := strings.Join(result.Errors, "\n")
	assert.Contains(t, all, "unexpected error")
	assert.Contains(t, all, "expected error UNAUTHORIZED, got success")
	assert.Contains(t, all, `attribute "action"`)
	assert.Contains(t, all, "data =")
	assert.Contains(t, all, "final: limit = 7, want 9")
	assert.Contains(t, all, "final: owner = ${owner}, want alice")
	assert.Contains(t, all, "final: balance of owner = 10, want 11")
	assert.Contains(t, all, "2 occurrences of increment_limit")
	assert.Len(t, result.Errors, 8)
}

func TestRun_InstantiateFailureIsAnError(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_instantiate",
		Description: "limit is not a number",
		Instantiate: &InstantiateStep{Sender: "owner", Limit: "ten"},
		Steps:       []Step{{Query: map[string]any{"get_limit": map[string]any{}}}},
	}
	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to instantiate")
}

func TestRun_CustomPrefixAndDenom(t *testing.T) {
	scenario, err := ParseScenario([]byte(`
name: osmo
description: "Addresses and denom follow the scenario"
prefix: osmo
denom: uosmo
balances:
  alice: "5"
instantiate:
  sender: owner
  limit: "1"
steps:
  - execute: {transfer_tokens: {sender: "${alice}", recipient: "${bob}", amount: "5"}}
    sender: alice
    expect:
      messages:
        - {from: alice, to: bob, amount: "5"}
final:
  balances: {alice: "0", bob: "5"}
`))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, strings.Join(result.Errors, "\n"))
	require.Len(t, result.Trace, 4)
	assert.Equal(t, "${alice}", result.Trace[2].Sender)
}
