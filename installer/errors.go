package installer

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned when the context was cancelled during a run.
	ErrCancelled = errors.New("operation cancelled")

	// ErrVetoed is returned when the PreCheck hook refused the installation.
	ErrVetoed = errors.New("installation vetoed by pre-check")

	// ErrSelectionFrozen is returned when tasks are changed after staging began.
	ErrSelectionFrozen = errors.New("task selection is frozen")

	// ErrUnknownTask is returned when selecting a task that is not declared.
	ErrUnknownTask = errors.New("unknown task")

	// ErrTargetNotStaged is returned when a shortcut points at a file the
	// staging plan does not install.
	ErrTargetNotStaged = errors.New("shortcut target is not a staged file")

	// ErrShortcutName is returned when a resolved shortcut name would place
	// the shortcut outside the folder of its location.
	ErrShortcutName = errors.New("shortcut name is not a plain file name")

	// ErrInvalidTransition is returned for a lifecycle transition the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrRelativePath is returned when a path template does not resolve to
	// an absolute path.
	ErrRelativePath = errors.New("path is not absolute")
)

// UnresolvedTokenError reports a {token} that is not defined, or whose
// definition refers back to itself.
type UnresolvedTokenError struct {
	Token    string
	Template string
	Cycle    bool
}

func (e *UnresolvedTokenError) Error() string {
	if e.Cycle {
		return fmt.Sprintf("resolve %q: token {%s} refers to itself", e.Template, e.Token)
	}
	return fmt.Sprintf("resolve %q: undefined token {%s}", e.Template, e.Token)
}

// SourceMissingError reports a declared source file that does not exist
// when the staging plan is built. Nothing has been copied at that point.
type SourceMissingError struct {
	Entry  int // Index in the Files section
	Source string
	Err    error
}

func (e *SourceMissingError) Error() string {
	return fmt.Sprintf("files[%d]: source %s: %v", e.Entry, e.Source, e.Err)
}

func (e *SourceMissingError) Unwrap() error { return e.Err }

// DestinationError reports a file destination outside the install directory.
type DestinationError struct {
	Entry int
	Dest  string
	Root  string
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("files[%d]: destination %s is outside install directory %s", e.Entry, e.Dest, e.Root)
}

// CopyFailedError reports a file that could not be staged. The run's
// completed copies are rolled back.
type CopyFailedError struct {
	Source string
	Dest   string
	Err    error
}

func (e *CopyFailedError) Error() string {
	return fmt.Sprintf("copy %s to %s: %v", e.Source, e.Dest, e.Err)
}

func (e *CopyFailedError) Unwrap() error { return e.Err }

// ShortcutCreationError reports a shortcut (or other registration) that
// could not be created. The run is rolled back through staging.
type ShortcutCreationError struct {
	Name string
	Path string
	Err  error
}

func (e *ShortcutCreationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("shortcut %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("shortcut %q at %s: %v", e.Name, e.Path, e.Err)
}

func (e *ShortcutCreationError) Unwrap() error { return e.Err }

// PostInstallHookError reports a failure after shortcuts were registered.
// It never fails the run; it is surfaced in the Summary.
type PostInstallHookError struct {
	Hook string
	Err  error
}

func (e *PostInstallHookError) Error() string {
	return fmt.Sprintf("post-install %s: %v", e.Hook, e.Err)
}

func (e *PostInstallHookError) Unwrap() error { return e.Err }
