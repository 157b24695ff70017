// Package pipeline drives a counting session frame by frame.
//
// It is the composition root between the external vision pipeline
// (FrameSource) and the rendering/reporting layers (FrameSink). It owns no
// counting logic; that lives in the counting package.
package pipeline
