//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

var stopSignal os.Signal = syscall.SIGTERM
