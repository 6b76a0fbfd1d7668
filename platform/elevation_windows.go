//go:build windows

package platform

import "golang.org/x/sys/windows"

// IsElevated reports whether setupkit runs with an elevated administrator
// token, as required to write Program Files and HKLM.
func IsElevated() bool {
	return windows.GetCurrentProcessToken().IsElevated()
}
