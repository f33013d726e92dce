package harness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	neutralLine = "0x0003 8 80 80 80 80"
	aLine       = "0x0013 8 80 80 80 80"
	hatUpLine   = "0x0003 0 80 80 80 80"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Type: EventActivate, AtMS: 0, Task: "mash_a"},
		{Type: EventReport, AtMS: 0, Report: neutralLine},
		{Type: EventReport, AtMS: 0, Report: aLine},
		{Type: EventReport, AtMS: 20, Report: neutralLine},
		{Type: EventReport, AtMS: 41, Report: aLine},
		{Type: EventReport, AtMS: 61, Report: neutralLine},
		{Type: EventActivate, AtMS: 70, Task: "changethedate", Delta: "0/0/1"},
		{Type: EventReport, AtMS: 70, Report: hatUpLine},
		{Type: EventReport, AtMS: 120, Report: neutralLine},
		{Type: EventComplete, AtMS: 200, Task: "changethedate"},
	}
}

func TestAssertPressCount(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertPressCount(trace, Assertion{Command: "A", Count: 2}))
	assert.NoError(t, assertPressCount(trace, Assertion{Command: "HAT_UP", Count: 1}))
	assert.NoError(t, assertPressCount(trace, Assertion{Command: "A", Count: 1, From: 10 * time.Millisecond}))
	assert.NoError(t, assertPressCount(trace, Assertion{Command: "A", Count: 1, To: 40 * time.Millisecond}))
	assert.NoError(t, assertPressCount(trace, Assertion{Command: "B", Count: 0}))

	err := assertPressCount(trace, Assertion{Command: "A", Count: 5})
	require.Error(t, err)
	var ae *AssertionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, AssertPressCount, ae.Type)
	assert.Equal(t, "2 presses", ae.Actual)
}

func TestAssertCompleted(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertCompleted(trace, Assertion{Task: "changethedate"}))
	assert.NoError(t, assertCompleted(trace, Assertion{Task: "changethedate", Count: 1}))
	assert.Error(t, assertCompleted(trace, Assertion{Task: "changethedate", Count: 2}))
	assert.Error(t, assertCompleted(trace, Assertion{Task: "mash_a"}))
}

func TestAssertNeutralAndReportAt(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertNeutralAt(trace, Assertion{At: 30 * time.Millisecond}))
	assert.Error(t, assertNeutralAt(trace, Assertion{At: 45 * time.Millisecond}))

	assert.NoError(t, assertReportAt(trace, Assertion{At: 0, Report: aLine}))
	assert.NoError(t, assertReportAt(trace, Assertion{At: 100 * time.Millisecond, Command: "HAT_UP"}))
	assert.Error(t, assertReportAt(trace, Assertion{At: 100 * time.Millisecond, Command: "A"}))
	assert.Error(t, assertReportAt(trace, Assertion{At: 20 * time.Millisecond, Report: aLine}))
}

func TestReportAt_BeforeFirstEvent(t *testing.T) {
	r, err := reportAt(nil, time.Second)
	require.NoError(t, err)
	assert.True(t, r.IsNeutral())
}

func TestAssertActiveAt(t *testing.T) {
	trace := sampleTrace()

	assert.NoError(t, assertActiveAt(trace, Assertion{At: 10 * time.Millisecond, Task: "mash_a"}))
	assert.NoError(t, assertActiveAt(trace, Assertion{At: 150 * time.Millisecond, Task: "changethedate"}))
	assert.NoError(t, assertActiveAt(trace, Assertion{At: 200 * time.Millisecond, Task: "idle"}))
	assert.Error(t, assertActiveAt(trace, Assertion{At: 10 * time.Millisecond, Task: "idle"}))
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Trace = sampleTrace()

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertPressCount, Command: "A", Count: 2},
		{Type: AssertCompleted, Task: "mash_a"},
		{Type: "bogus"},
	})
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "Assertion failed: completed")
	assert.Contains(t, errs[0], "Full trace:")
	assert.Contains(t, errs[1], `unknown assertion type "bogus"`)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}
