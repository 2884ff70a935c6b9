// Package transport binds one playback element per variant into a single
// synchronized transport for the active test case.
//
// Commands are broadcast to every element without waiting for them to
// settle; bounded drift between streams is accepted. The element at the first
// loaded slot is the clock that CurrentTime and Duration report. An element
// that fails to load leaves its slot empty and never blocks the others.
//
// Layout carries the presentation order. In blind sessions it is a fresh
// uniform permutation per case, with labels and colors fixed by position so
// nothing on screen identifies a variant.
package transport
