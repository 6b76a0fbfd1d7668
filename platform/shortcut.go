package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// Shortcut describes a launcher pointing at an installed file: a .lnk file on
// Windows, a .desktop entry on Linux, a symlink or LaunchAgent on macOS.
type Shortcut struct {
	Name        string // Display name (Linux .desktop Name=, LaunchAgent label suffix)
	Target      string // Path to the target executable
	Arguments   string // Command-line arguments (optional)
	WorkingDir  string // Working directory (optional, defaults to target's directory)
	Description string // Tooltip description (optional)
	IconPath    string // Path to icon file (optional, defaults to target)
	IconIndex   int    // Icon index within the icon file (Windows only)
}

// ShortcutPath returns where a shortcut named name is written inside dir.
// Startup shortcuts may use a different file format than regular ones.
func ShortcutPath(dir, name string, startup bool) string {
	return filepath.Join(dir, name+shortcutExt(startup))
}

// DeleteShortcut removes a shortcut file. A missing file is not an error.
func DeleteShortcut(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// prepareShortcut creates the parent directory and removes an existing
// shortcut so that re-creating it overwrites rather than duplicates.
func prepareShortcut(path string, s Shortcut) error {
	if _, err := os.Stat(s.Target); err != nil {
		return fmt.Errorf("target not found: %s", s.Target)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create directory %s: %w", filepath.Dir(path), err)
	}
	if _, err := os.Lstat(path); err == nil {
		_ = os.Remove(path)
	}
	return nil
}

func (s Shortcut) workingDir() string {
	if s.WorkingDir != "" {
		return s.WorkingDir
	}
	return filepath.Dir(s.Target)
}
