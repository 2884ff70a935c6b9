// Package notifications pushes export outcomes to ntfy.
//
// The ntfy topic URL comes from config.toml. When none is configured the
// service is a no-op, so callers never need to check whether notifications
// are enabled.
package notifications
