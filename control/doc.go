// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics, configuration files and debug introspection for
// hioload-spead senders.
//
// Provides concurrent-safe state handling primitives including:
//   - Counter registry with snapshot reads
//   - JSON configuration loading with defaults
//   - Probe registration and state export
package control
