// Package history records the votes of one review session.
//
// The record lives in an in-memory SQLite database that disappears with the
// process; nothing is written to disk. Rows are append-only: the schema
// rejects updates and deletes, and a case can be voted on once.
package history
