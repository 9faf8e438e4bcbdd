//go:build linux
// +build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux implementation over sched_setaffinity(2) for the calling thread.

package affinity

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func setAffinityPlatform(cpuID int) error {
	if cpuID < 0 {
		return errors.Errorf("affinity: invalid cpu %d", cpuID)
	}
	var set unix.CPUSet
	set.Set(cpuID)
	// pid 0 addresses the calling thread
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "affinity: pin to cpu %d", cpuID)
	}
	return nil
}

// maxCPUs matches the size of unix.CPUSet.
const maxCPUs = 1024

func allowedPlatform() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, errors.Wrap(err, "affinity: get mask")
	}
	var cpus []int
	for cpu := 0; cpu < maxCPUs && len(cpus) < set.Count(); cpu++ {
		if set.IsSet(cpu) {
			cpus = append(cpus, cpu)
		}
	}
	return cpus, nil
}
