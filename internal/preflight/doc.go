// Package preflight verifies that the pipeline can run before the scheduler
// starts.
//
// These checks run in two contexts:
//   - "briefcast run" and "briefcast once" call RunAll and refuse to start if
//     any required check fails.
//   - "briefcast status" shows every result, plus an optional live LLM check.
package preflight
