//go:build windows

package platform

import (
	"errors"

	"golang.org/x/sys/windows"
)

// AcquireSingleInstance holds the named mutex Global\{name} for the life of
// the run, so a second setupkit for the same application fails fast.
// The mutex spans every session. Unexpected errors let the run proceed.
func AcquireSingleInstance(name string) (release func(), ok bool) {
	ptr, err := windows.UTF16PtrFromString(`Global\` + name)
	if err != nil {
		return func() {}, true
	}
	h, err := windows.CreateMutex(nil, false, ptr)
	switch {
	case errors.Is(err, windows.ERROR_ALREADY_EXISTS):
		if h != 0 {
			windows.CloseHandle(h)
		}
		return nil, false
	case err != nil:
		return func() {}, true
	}
	return func() { windows.CloseHandle(h) }, true
}
