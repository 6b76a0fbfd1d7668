// Package platform provides the operating-system collaborators of the
// installer core.
//
// Supported platforms are Windows, Linux and macOS; other targets fail to
// compile (see unsupported.go).
//
// # Features
//
//   - Special folders: DetectFolders returns the token table the variable
//     resolver expands ({userdesktop}, {commonstartup}, ...)
//   - Shortcuts: .lnk files via COM on Windows, .desktop entries on Linux,
//     symlinks and LaunchAgents on macOS
//   - App registration: Add/Remove Programs entries (Windows only)
//   - Single instance: one installer per application at a time
//   - Elevation: detect administrator/root privileges
//
// # Example Usage
//
//	release, ok := platform.AcquireSingleInstance("setupkit-" + appID)
//	if !ok {
//	    return errors.New("another installer is running")
//	}
//	defer release()
//
//	folders, err := platform.DetectFolders()
//	if err != nil {
//	    return err
//	}
//	lnk := platform.ShortcutPath(folders[platform.FolderUserDesktop], "My App", false)
//	err = platform.CreateShortcut(lnk, platform.Shortcut{Name: "My App", Target: exe})
package platform
