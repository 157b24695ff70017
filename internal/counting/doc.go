// Package counting owns the vehicle-counting core.
//
// Responsibilities: projecting a detection-band motion mask onto a 1-D
// occupancy signal, extracting vehicle peaks from that signal, deciding
// which peaks are new relative to the previous frame, and accumulating the
// running vehicle count for a session.
// Key types: Signal, PeakSet, Session, FrameResult.
//
// Dependency rule: counting never imports video decode, storage or HTTP
// code. Masks arrive as *image.Gray from the pipeline package.
package counting
