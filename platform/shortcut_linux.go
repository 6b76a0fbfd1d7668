//go:build linux

package platform

import (
	"fmt"
	"os"
	"strings"
)

const desktopEntry = `[Desktop Entry]
Type=Application
Name=%s
Comment=%s
Exec=%s
Path=%s
Icon=%s
Terminal=false
X-GNOME-Autostart-enabled=true
`

func shortcutExt(startup bool) string {
	return ".desktop"
}

// CreateShortcut writes a freedesktop.org .desktop entry at path. The same
// format serves menus, the desktop and the XDG autostart folder.
func CreateShortcut(path string, s Shortcut) error {
	if err := prepareShortcut(path, s); err != nil {
		return err
	}

	exec := quoteExec(s.Target)
	if s.Arguments != "" {
		exec += " " + s.Arguments
	}
	icon := s.IconPath
	if icon == "" {
		icon = s.Target
	}

	content := fmt.Sprintf(desktopEntry, s.Name, s.Description, exec, s.workingDir(), icon)
	if err := os.WriteFile(path, []byte(content), 0755); err != nil {
		return fmt.Errorf("write desktop entry: %w", err)
	}
	return nil
}

// quoteExec quotes a path for the Exec= key when it contains spaces.
func quoteExec(path string) string {
	if strings.ContainsAny(path, " \t\"") {
		return `"` + strings.ReplaceAll(path, `"`, `\"`) + `"`
	}
	return path
}
