// control/debug.go
// Author: momentics <momentics@gmail.com>
//
// Probe registry for live inspection of stream internals (ring depth,
// backlog length).

package control

import "sync"

// DebugProbes holds registered probe functions.
type DebugProbes struct {
	mu     sync.RWMutex
	probes map[string]func() any
}

// NewDebugProbes creates a probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{
		probes: make(map[string]func() any),
	}
}

// RegisterProbe inserts a named debug hook, replacing any previous one.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.probes[name] = fn
}

// UnregisterProbe removes a hook.
func (dp *DebugProbes) UnregisterProbe(name string) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	delete(dp.probes, name)
}

// DumpState returns output of all probes. Probes run without the registry
// lock held so they may take their own locks.
func (dp *DebugProbes) DumpState() map[string]any {
	dp.mu.RLock()
	fns := make(map[string]func() any, len(dp.probes))
	for k, fn := range dp.probes {
		fns[k] = fn
	}
	dp.mu.RUnlock()

	out := make(map[string]any, len(fns))
	for k, fn := range fns {
		out[k] = fn()
	}
	return out
}
