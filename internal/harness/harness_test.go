package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	scenarios, err := LoadScenarioDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_RecordsSummary(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/change_date.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.Equal(t, SessionID, result.Summary.Session.ID)
	assert.Equal(t, "change_date", result.Summary.Session.Label)
	assert.Equal(t, 1, result.Summary.Activations)
	assert.Equal(t, 1, result.Summary.Completions)
	assert.True(t, result.Summary.Finished)
	assert.Equal(t, "1/0/2", result.Trace[0].Delta)
}

func TestRun_ReportsStepErrors(t *testing.T) {
	s := &Scenario{
		Name:        "errors",
		Description: "step expectations are enforced",
		Duration:    10 * time.Millisecond,
		Steps: []Step{
			{At: 0, Command: "fly_away"},
			{At: 0, Command: "mash_a", ExpectError: true},
		},
		Assertions: []Assertion{{Type: AssertActiveAt, Task: "mash_a", At: 5 * time.Millisecond}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "unknown task")
	assert.Contains(t, result.Errors[1], "expected an error")
}

func TestRun_FailingAssertion(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/mash_a.yaml")
	require.NoError(t, err)
	s.Assertions = []Assertion{{Type: AssertPressCount, Command: "A", Count: 7}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "7 presses of A")
}

func TestRun_BadSequenceDir(t *testing.T) {
	s := &Scenario{
		Name:       "bad",
		Sequences:  []string{"testdata/bad"},
		Duration:   time.Millisecond,
		Steps:      []Step{{Command: "mash_a"}},
		Assertions: []Assertion{{Type: AssertNeutralAt}},
	}
	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load sequences")
}
