//go:build windows

package platform

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// DetectFolders returns the special-folder table of the current user and machine.
// Example: "userstartup" -> C:\Users\<user>\AppData\Roaming\Microsoft\Windows\Start Menu\Programs\Startup
func DetectFolders() (map[string]string, error) {
	known := map[string]*windows.KNOWNFOLDERID{
		FolderUserProgramFiles: windows.FOLDERID_UserProgramFiles,
		FolderCommonPrograms:   windows.FOLDERID_CommonPrograms,
		FolderUserPrograms:     windows.FOLDERID_Programs,
		FolderCommonDesktop:    windows.FOLDERID_PublicDesktop,
		FolderUserDesktop:      windows.FOLDERID_Desktop,
		FolderCommonStartup:    windows.FOLDERID_CommonStartup,
		FolderUserStartup:      windows.FOLDERID_Startup,
		FolderCommonAppData:    windows.FOLDERID_ProgramData,
		FolderUserAppData:      windows.FOLDERID_RoamingAppData,
		FolderLocalAppData:     windows.FOLDERID_LocalAppData,
	}

	folders := make(map[string]string, len(FolderTokens))
	for token, id := range known {
		// KF_FLAG_DONT_VERIFY: the per-user programs folder may not exist yet.
		path, err := windows.KnownFolderPath(id, windows.KF_FLAG_DONT_VERIFY)
		if err != nil {
			return nil, fmt.Errorf("known folder %s: %w", token, err)
		}
		folders[token] = path
	}
	folders[FolderProgramFiles] = ProgramFilesPath()
	folders[FolderTemp] = os.TempDir()
	return folders, nil
}

// ProgramFilesPath returns the path to the Program Files folder.
// Example: C:\Program Files
func ProgramFilesPath() string {
	path := os.Getenv("ProgramFiles")
	if path == "" {
		return `C:\Program Files`
	}
	return path
}
