// Package export packs the composites of representative cases and the vote
// report into one zip archive.
//
// Cases are rendered one at a time in queue order; the renderer owns a single
// rendering surface and is never called concurrently. The archive is written
// to a temporary file next to the destination and renamed into place only
// after every case has been rendered. If any case fails, the temporary file is
// removed and the caller receives a single CaseError.
package export
