//go:build windows

package supervisor

import "os"

// Windows has no graceful signal for arbitrary processes.
var stopSignal os.Signal = os.Kill
