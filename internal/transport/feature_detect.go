// File: internal/transport/feature_detect.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Advertises the detected capabilities of the UDP transport for this platform.

package transport

import (
	"runtime"

	"github.com/momentics/hioload-spead/api"
)

// DetectTransportFeatures returns the UDP transport capabilities for this OS.
func DetectTransportFeatures() api.TransportFeatures {
	return api.TransportFeatures{
		ZeroCopy: runtime.GOOS == "linux",
		Datagram: true,
		OS:       []string{runtime.GOOS},
	}
}
