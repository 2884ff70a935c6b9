// Package services defines shared utilities consumed by the matching,
// compositing, and export components.
//
// Key responsibilities:
//   - Context helpers that stamp session IDs, case IDs, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper so callers can classify
//     failures (decode, encode, external tool, timeout) without parsing
//     messages, and Describe, which turns them into reviewer-facing text.
package services
