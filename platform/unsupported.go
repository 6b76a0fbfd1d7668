//go:build !windows && !linux && !darwin

package platform

// Special folders, shortcuts and the installed-programs entry are only
// implemented for Windows, Linux and macOS. Building for any other GOOS
// fails here with a readable message instead of a list of undefined names.
var _ int = "setupkit/platform: unsupported GOOS, add folders, shortcut and elevation files for it"
