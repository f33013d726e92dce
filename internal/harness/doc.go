// Package harness replays scripted command timelines against the engine
// and checks the resulting controller trace.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: mash_a
//	description: "mash_a presses A every 41ms"
//	sequences:            # optional CUE sequence directories
//	  - ../sequences
//	tick: 1ms             # engine quantum, default 1ms
//	duration: 100ms       # simulated time
//	steps:
//	  - at: 0ms
//	    command: mash_a
//	  - at: 90ms
//	    command: end
//	assertions:
//	  - type: press_count
//	    command: A
//	    count: 3
//	  - type: neutral_at
//	    at: 30ms
//
// Step commands use the same text syntax as the run loop (task names,
// "Date Y/M/D", "Year N", raw serial report lines, "end"). A step with
// expect_error: true must be rejected by the parser or the engine.
//
// # Assertion Types
//
//   - press_count: a command becomes active exactly count times (optional from/to window)
//   - completed: a task ran to completion (exactly count times when count > 0)
//   - neutral_at: the report in effect at time at is neutral
//   - report_at: the report at time at equals report, or has command active
//   - active_at: the task selected at time at
//
// # Deterministic Testing
//
// Each scenario runs against a testutil.ManualClock stepped one tick at a
// time and records into a fresh in-memory SQLite session log. The trace
// is read back from that log, so identical scenarios produce identical
// traces and golden files compare byte for byte.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/mash_a.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
