// Package pipeline runs pages through a fixed sequence of steps: load the
// page, classify and redact its text blocks, then write the result.
//
// Each page gets its own Run, which carries the loaded page, the rendered
// output and the PageReport that the classifier fills in. BatchProcessor
// runs several pages concurrently using errgroup with a concurrency limit.
package pipeline
