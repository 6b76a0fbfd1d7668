//go:build !windows

package platform

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// AcquireSingleInstance takes an exclusive flock on {cache}/{name}.lock so
// that only one installer for the same application runs at a time.
// Returns a release function and true if the lock was acquired, or nil and
// false if another process holds it.
func AcquireSingleInstance(name string) (release func(), ok bool) {
	cacheDir, err := UserCachePath()
	if err != nil {
		cacheDir = os.TempDir()
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		cacheDir = os.TempDir()
	}
	lockPath := filepath.Join(cacheDir, name+".lock")

	file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, false
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		return nil, false
	}

	// PID is informational, for humans inspecting a stale lock.
	file.Truncate(0)
	fmt.Fprintf(file, "%d", os.Getpid())
	file.Sync()

	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
		os.Remove(lockPath)
	}, true
}
