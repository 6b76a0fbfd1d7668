//go:build darwin

package platform

import (
	"os"
	"path/filepath"
)

// DetectFolders returns the special-folder table for macOS. Startup entries
// are LaunchAgents, so the startup tokens point at the LaunchAgents folders.
func DetectFolders() (map[string]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	support := filepath.Join(home, "Library", "Application Support")

	return map[string]string{
		FolderProgramFiles:     "/Applications",
		FolderUserProgramFiles: filepath.Join(home, "Applications"),
		FolderCommonPrograms:   "/Applications",
		FolderUserPrograms:     filepath.Join(home, "Applications"),
		FolderCommonDesktop:    filepath.Join(home, "Desktop"),
		FolderUserDesktop:      filepath.Join(home, "Desktop"),
		FolderCommonStartup:    "/Library/LaunchAgents",
		FolderUserStartup:      filepath.Join(home, "Library", "LaunchAgents"),
		FolderCommonAppData:    "/Library/Application Support",
		FolderUserAppData:      support,
		FolderLocalAppData:     support,
		FolderTemp:             os.TempDir(),
	}, nil
}

// UserCachePath returns the path to the current user's cache directory.
// This is ~/Library/Caches on macOS.
func UserCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "Caches"), nil
}
