// Package toolenv runs named tools inside isolated, reproducible environments.
//
// An Engine materializes the environment for a ToolName (Ensure) and runs
// argument lists inside it (Exec). Environment wraps Ensure with the
// build-output visibility rules and Runner wraps both with the execution mode
// rules:
//
//   - ModeTraced streams every build and run, and echoes each command line.
//   - ModeQuiet captures run output and replays it only when the tool fails.
//   - Interactive invocations always attach the caller's terminal.
//
// Engines never memoize: every Ensure call asks the underlying build engine,
// which owns staleness detection and layer caching.
package toolenv
