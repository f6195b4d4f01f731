// Package scanner turns card images into staged collection entries.
//
// Recognition tracks extract independent observations from a capture,
// the pipeline merges them and hands the result to the matcher and
// ambiguity policy, and the worker drains a FIFO queue of requests on
// a background goroutine, emitting lifecycle events through a fan-out
// hub. Matched outcomes land in the staging session; ambiguous ones
// wait for a caller-supplied choice.
package scanner
