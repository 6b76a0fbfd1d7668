//go:build windows

package platform

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/windows"
)

// DeleteWhenFree removes a file, or, when the file is in use (typically the
// running uninstaller), hands it to a detached helper that keeps retrying
// until the file is released. It reports whether the file is already gone.
func DeleteWhenFree(path string) (bool, error) {
	err := os.Remove(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return true, nil
	}

	script := fmt.Sprintf(
		`:loop & del /f /q "%[1]s" 2>nul & if exist "%[1]s" ( timeout /t 1 /nobreak >nul & goto loop )`,
		path,
	)
	cmd := exec.Command("cmd.exe", "/C", script)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP | windows.DETACHED_PROCESS,
	}
	if err := cmd.Start(); err != nil {
		return false, fmt.Errorf("start delete helper: %w", err)
	}
	return false, nil
}
