// Package vision adapts external image sources into foreground masks for the
// counting pipeline.
//
// DirSource replays pre-computed mask images from a directory and is always
// available. VideoSource decodes video and runs background subtraction with
// OpenCV; it is only compiled with the withcv build tag because gocv needs
// cgo and an installed OpenCV.
package vision
