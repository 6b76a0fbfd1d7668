//go:build linux

package platform

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// DetectFolders returns the special-folder table following the XDG Base
// Directory specification. Linux has no shared desktop, so commondesktop
// is the user's desktop.
func DetectFolders() (map[string]string, error) {
	desktop, err := UserDesktopPath()
	if err != nil {
		return nil, err
	}
	data, err := UserDataPath()
	if err != nil {
		return nil, err
	}
	config, err := UserConfigPath()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		FolderProgramFiles:     "/opt",
		FolderUserProgramFiles: filepath.Join(data, "programs"),
		FolderCommonPrograms:   "/usr/share/applications",
		FolderUserPrograms:     filepath.Join(data, "applications"),
		FolderCommonDesktop:    desktop,
		FolderUserDesktop:      desktop,
		FolderCommonStartup:    "/etc/xdg/autostart",
		FolderUserStartup:      filepath.Join(config, "autostart"),
		FolderCommonAppData:    "/var/lib",
		FolderUserAppData:      config,
		FolderLocalAppData:     data,
		FolderTemp:             os.TempDir(),
	}, nil
}

// UserDesktopPath returns the path to the current user's Desktop folder.
func UserDesktopPath() (string, error) {
	if dir := os.Getenv("XDG_DESKTOP_DIR"); dir != "" {
		return dir, nil
	}
	if dir := readUserDir("XDG_DESKTOP_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Desktop"), nil
}

// UserDataPath returns $XDG_DATA_HOME or ~/.local/share.
func UserDataPath() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share"), nil
}

// UserConfigPath returns $XDG_CONFIG_HOME or ~/.config.
func UserConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config"), nil
}

// UserCachePath returns $XDG_CACHE_HOME or ~/.cache.
func UserCachePath() (string, error) {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache"), nil
}

// readUserDir reads a directory from ~/.config/user-dirs.dirs (KEY="value" lines).
func readUserDir(key string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	file, err := os.Open(filepath.Join(home, ".config", "user-dirs.dirs"))
	if err != nil {
		return ""
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if value, ok := strings.CutPrefix(line, key+"="); ok {
			value = strings.Trim(value, "\"")
			return strings.ReplaceAll(value, "$HOME", home)
		}
	}
	return ""
}
