// Package main hosts the arena CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, discovers each
// variant's files, and hands the matched case queue to the review loop, the
// single-composite download, or the batch exporter. Heavy lifting lives in
// the internal packages; commands here only wire them together and render
// terminal output.
package main
