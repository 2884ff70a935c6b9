// Package matcher aligns per-variant file sets into test cases.
//
// Files are keyed by base name (directory and trailing extension removed,
// case-sensitive). A base name becomes a case when every variant holds at
// least one file with that key; cases are sorted lexicographically so the
// queue order is reproducible for the same inputs. When a variant holds more
// than one file with the same key, the DuplicatePolicy decides between taking
// the first file in listing order and rejecting the key as ambiguous.
//
// Incomplete input is never an error: Ready reports whether the result can be
// reviewed, and Unmatched explains which files were left out.
package matcher
