// Package preflight provides readiness checks for the directories and
// external binaries arena depends on.
//
// The CLI "arena deps" command prints every check. Commands that render
// composites call RunAll first and refuse to start when a required check
// fails, so a batch never dies halfway through on a missing directory.
package preflight
