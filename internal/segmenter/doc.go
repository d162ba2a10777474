// Package segmenter owns the range-image stage of the odometry pipeline:
// projection of a raw sweep onto the beam/azimuth grid, inter-ring ground
// classification, angle-based breadth-first segmentation, and assembly of
// the derived clouds plus per-ring index bookkeeping consumed by feature
// extraction.
//
// The stage is single-threaded: one sweep is processed to completion before
// the next begins, and all working buffers are allocated once at
// construction and reused. Publication is the caller's concern (see
// internal/pipeline); this package never blocks on a sink.
package segmenter
