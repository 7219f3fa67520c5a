package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MrSnakeDoc/muster/internal/domain"
)

// ProcessTerminator asks a process to stop, then kills it after Grace.
type ProcessTerminator struct {
	Grace time.Duration
}

// Terminate implements Terminator. A process that already exited is not an error.
func (p ProcessTerminator) Terminate(ctx context.Context, svc *domain.Service, pid int) error {
	if exited(svc) {
		return nil
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	if err := proc.Signal(stopSignal); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		return fmt.Errorf("signal process: %w", err)
	}

	timer := time.NewTimer(p.Grace)
	defer timer.Stop()

	select {
	case <-svc.Exited():
		return nil
	case <-timer.C:
	case <-ctx.Done():
	}

	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process: %w", err)
	}
	return nil
}

func exited(svc *domain.Service) bool {
	select {
	case <-svc.Exited():
		return true
	default:
		return false
	}
}
