// Package logging builds the slog loggers arena commands share.
//
// Console output is a compact one-line format (or JSON when configured) on
// stderr, so stdout stays free for command output. When a log directory is
// configured every record is also appended to arena.log as JSON lines.
// Context helpers tag records with the session, case, and stage carried on a
// context.Context.
package logging
