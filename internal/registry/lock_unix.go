//go:build !windows

package repos

import (
	"os"
	"syscall"
)

// lockFile acquires a non-blocking exclusive flock, mirroring the teacher's
// internal/index/lock.go pattern for the registry's own lock file.
func lockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func unlockFile(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
