//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

var stopSignal os.Signal = syscall.SIGTERM
