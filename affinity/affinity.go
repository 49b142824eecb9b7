// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "fmt"

// SetAffinity pins the calling OS thread to logical CPU cpuID. The caller
// must hold the thread with runtime.LockOSThread.
// On unsupported platforms returns an error.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// Allowed returns the CPUs the calling thread may run on, or nil when the
// platform cannot tell.
func Allowed() []int {
	return allowedPlatform()
}
