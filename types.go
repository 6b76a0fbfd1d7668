package setupkit

import (
	"path/filepath"
	"strings"
)

// Scope selects between a per-user and a per-machine installation.
// It decides which special folders the auto* tokens resolve to.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeMachine Scope = "machine"
)

// PerMachine reports whether the scope targets all users.
func (s Scope) PerMachine() bool {
	return s == ScopeMachine
}

// InstallSpec is the identity and layout of the application being installed.
// It is built once when the installer script is loaded and never mutated.
type InstallSpec struct {
	AppID        string // Stable UUID identifying the application across versions
	AppName      string
	Version      string
	Publisher    string
	PublisherURL string
	SupportURL   string
	UpdatesURL   string

	// DefaultDir is the install directory template, e.g. `{autopf}\{appname}`.
	DefaultDir string

	// GroupName is the Start Menu folder template. Defaults to "{appname}".
	GroupName string

	Scope Scope

	// OutputBaseFilename is the installer package name template without extension.
	OutputBaseFilename string

	// SourceDir is the base directory relative file sources are taken from.
	SourceDir string

	// Uninstallable controls whether an uninstaller is staged with the app.
	Uninstallable bool
}

// PackageFilename returns the file name of the produced installer package.
// Only the {appname} and {version} tokens are meaningful at build time.
func (s InstallSpec) PackageFilename() string {
	base := s.OutputBaseFilename
	if base == "" {
		base = "{appname}-{version}-setup"
	}
	r := strings.NewReplacer("{appname}", s.AppName, "{version}", s.Version)
	return r.Replace(base) + ".exe"
}

// FileFlag modifies how a FileEntry is staged.
type FileFlag string

const (
	// FlagIgnoreVersion always overwrites the destination.
	FlagIgnoreVersion FileFlag = "ignoreversion"
	// FlagOnlyIfDoesntExist skips the copy when the destination is present.
	FlagOnlyIfDoesntExist FileFlag = "onlyifdoesntexist"
	// FlagSkipIfSourceDoesntExist turns a missing source into a no-op.
	FlagSkipIfSourceDoesntExist FileFlag = "skipifsourcedoesntexist"
)

var knownFileFlags = map[FileFlag]bool{
	FlagIgnoreVersion:           true,
	FlagOnlyIfDoesntExist:       true,
	FlagSkipIfSourceDoesntExist: true,
}

// FileEntry declares one file (or glob of files) to stage.
type FileEntry struct {
	Source   string     // Path or glob relative to InstallSpec.SourceDir
	DestDir  string     // Destination directory template, e.g. "{app}"
	DestName string     // Optional rename; only valid when Source matches one file
	Flags    []FileFlag // Overwrite policy
}

// Has reports whether the entry carries flag f.
func (e FileEntry) Has(f FileFlag) bool {
	for _, flag := range e.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// SourcePath returns the entry's source joined to base when it is relative.
func (e FileEntry) SourcePath(base string) string {
	src := filepath.FromSlash(strings.ReplaceAll(e.Source, `\`, "/"))
	if filepath.IsAbs(src) || base == "" {
		return src
	}
	return filepath.Join(base, src)
}

// Task is an optional, user-selectable installation choice.
type Task struct {
	Name             string
	Description      string
	GroupDescription string
	Checked          bool // Selected by default
}

// Location is where a shortcut is placed.
type Location string

const (
	LocationStartMenu   Location = "startmenu"
	LocationDesktop     Location = "desktop"
	LocationStartup     Location = "startup"
	LocationUninstaller Location = "uninstaller"
)

var knownLocations = map[Location]bool{
	LocationStartMenu:   true,
	LocationDesktop:     true,
	LocationStartup:     true,
	LocationUninstaller: true,
}

// ShortcutEntry declares a shortcut to a staged file.
type ShortcutEntry struct {
	Name       string   // Display name template
	Target     string   // Target template; must resolve to a staged file
	Location   Location
	Tasks      string   // Optional gating expression, e.g. "desktopicon"
	Parameters string
	WorkingDir string
	Comment    string
}

// RunEntry is a program launched after installation.
type RunEntry struct {
	Target      string
	Parameters  string
	Description string

	// PostInstall entries only run when the caller opts in to launching.
	PostInstall bool

	Tasks string
}

// DeleteKind is how an UninstallDeleteEntry path is removed.
type DeleteKind string

const (
	DeleteFiles          DeleteKind = "files"
	DeleteFilesAndOrDirs DeleteKind = "filesandordirs"
	DeleteDirIfEmpty     DeleteKind = "dirifempty"
)

var knownDeleteKinds = map[DeleteKind]bool{
	DeleteFiles:          true,
	DeleteFilesAndOrDirs: true,
	DeleteDirIfEmpty:     true,
}

// UninstallDeleteEntry is an extra path removed on uninstall, typically data
// the application created at runtime.
type UninstallDeleteEntry struct {
	Path string
	Kind DeleteKind

	// UserData entries hold user settings and are only removed after the
	// user confirms.
	UserData bool
}
