package watcher

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// AcquirePIDFile records the current process in pidFile and returns a
// function that removes it. It fails if another live process holds the file.
// Stale files left by dead processes are replaced.
func AcquirePIDFile(pidFile string) (func(), error) {
	running, err := IsRunning(pidFile)
	if err != nil {
		return nil, fmt.Errorf("failed to check PID file: %w", err)
	}
	if running {
		return nil, fmt.Errorf("another delete-after watcher is already running (PID file: %s)", pidFile)
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d\n", pid)), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return func() {
		// Only remove the file if it is still ours.
		if owner, err := readPID(pidFile); err == nil && owner == pid {
			os.Remove(pidFile)
		}
	}, nil
}

// IsRunning checks whether the process named in pidFile is alive.
func IsRunning(pidFile string) (bool, error) {
	pid, err := readPID(pidFile)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			// Invalid PID file, consider the process not running
			return false, nil
		}
		return false, fmt.Errorf("failed to read PID file: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, nil
	}

	// Send signal 0 to check if process exists
	if err := process.Signal(syscall.Signal(0)); err != nil {
		if errors.Is(err, syscall.EPERM) {
			// Alive but owned by another user
			return true, nil
		}
		// Process doesn't exist, remove stale PID file
		os.Remove(pidFile)
		return false, nil
	}
	return true, nil
}

func readPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
