// Package config loads, normalizes, and validates arena configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARENA_NTFY_TOPIC. The Config type centralizes the session definition (the
// ordered variant list, media kind, and blind flag) together with matching,
// compositing, and export knobs so every command discovers them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
