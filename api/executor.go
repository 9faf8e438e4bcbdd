// Package api
// Author: momentics
//
// Executor contract for offloading work from loop threads.

package api

// Executor abstracts parallel task dispatch.
type Executor interface {
	// Submit schedules task for execution; it may block while the executor is saturated.
	Submit(task func()) error

	// SubmitKeyed schedules task behind every earlier task submitted with the same key.
	SubmitKeyed(key uint64, task func()) error

	// NumWorkers returns the number of worker routines.
	NumWorkers() int

	// Close stops accepting tasks and waits for queued ones to finish.
	Close()
}
