//go:build windows

package platform

import (
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

func shortcutExt(startup bool) string {
	return ".lnk"
}

// CreateShortcut creates a Windows shortcut (.lnk file) at path through the
// WScript.Shell COM object. An existing shortcut is replaced.
func CreateShortcut(path string, s Shortcut) error {
	if err := prepareShortcut(path, s); err != nil {
		return err
	}

	// COM is thread-bound.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		if oleErr, ok := err.(*ole.OleError); ok {
			code := oleErr.Code()
			if code != 0 && code != 1 { // S_OK=0, S_FALSE=1
				return fmt.Errorf("COM initialization failed: %s", oleErrorString(err))
			}
		}
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WScript.Shell")
	if err != nil {
		return fmt.Errorf("cannot create WScript.Shell object: %s", oleErrorString(err))
	}
	defer unknown.Release()

	wshell, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return fmt.Errorf("cannot get shell interface: %s", oleErrorString(err))
	}
	defer wshell.Release()

	v, err := oleutil.CallMethod(wshell, "CreateShortcut", path)
	if err != nil {
		return fmt.Errorf("cannot create shortcut object: %s", oleErrorString(err))
	}
	link := v.ToIDispatch()
	defer link.Release()

	icon := s.IconPath
	if icon == "" {
		icon = s.Target
	}
	props := []struct {
		name  string
		value string
	}{
		{"TargetPath", s.Target},
		{"Arguments", s.Arguments},
		{"WorkingDirectory", s.workingDir()},
		{"Description", s.Description},
		{"IconLocation", fmt.Sprintf("%s,%d", icon, s.IconIndex)},
	}
	for _, p := range props {
		if p.value == "" {
			continue
		}
		if _, err := oleutil.PutProperty(link, p.name, p.value); err != nil {
			return fmt.Errorf("cannot set %s: %s", p.name, oleErrorString(err))
		}
	}

	if _, err := oleutil.CallMethod(link, "Save"); err != nil {
		return fmt.Errorf("cannot save shortcut: %s", oleErrorString(err))
	}
	return nil
}

// oleErrorString extracts a meaningful error message from OLE errors.
func oleErrorString(err error) string {
	if err == nil {
		return "unknown error"
	}
	if oleErr, ok := err.(*ole.OleError); ok {
		return fmt.Sprintf("%s (HRESULT: 0x%08X)", oleErr.Error(), uint32(oleErr.Code()))
	}
	return err.Error()
}
