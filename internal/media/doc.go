// Package media models the per-variant media sources under comparison and the
// handles through which the pipeline reads them.
//
// A Source names exactly one of a local file or a remote URL. Components that
// need to read a source acquire a Handle from a Registry and must Release it
// on every path, success or failure; Registry.Outstanding exposes the count of
// unreleased handles so leaks across a batch are observable.
package media
