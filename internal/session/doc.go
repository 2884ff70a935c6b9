// Package session holds the immutable review session definition and the value
// types that flow between matching, review, and export: Variant, TestCase,
// Rating, and VoteResult.
package session
