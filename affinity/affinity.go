// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Thread-to-CPU pinning for dispatch loops. Linux uses sched_setaffinity on
// the calling thread; other platforms report api.ErrNotSupported.

package affinity

// SetAffinity pins the calling OS thread to cpuID. The caller must hold the
// thread with runtime.LockOSThread for the pin to mean anything.
func SetAffinity(cpuID int) error {
	return setAffinityPlatform(cpuID)
}

// Allowed returns the CPUs the calling thread may run on.
func Allowed() ([]int, error) {
	return allowedPlatform()
}
