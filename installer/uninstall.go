package installer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

// UninstallOptions configures Uninstall.
type UninstallOptions struct {
	// ConfirmUserData is asked once with every user-data path. User data is
	// only removed when it returns true; nil keeps it.
	ConfirmUserData func(paths []string) bool
}

// NewUninstaller creates a Controller for the installation described by rec.
// It starts in Completed, ready for Uninstall.
func NewUninstaller(rec *Record, opts Options) *Controller {
	opts.defaults()
	return &Controller{
		opts:    opts,
		m:       newMachine(StateCompleted),
		journal: NewJournal(opts.Log),
		record:  rec,
		summary: &Summary{InstallDir: rec.InstallDir},
	}
}

// Uninstall removes everything the record lists: shortcuts, the application
// entry, staged files, UninstallDelete paths and the directories the
// installation created. Removal is best effort: every item is attempted and
// the failures are returned joined.
func (c *Controller) Uninstall(ctx context.Context, uo UninstallOptions) (*Summary, error) {
	if c.m.state != StateCompleted {
		return nil, fmt.Errorf("%w: uninstall from %s", ErrInvalidTransition, c.m.state)
	}
	rec := c.record
	if rec == nil {
		return nil, errors.New("no uninstall record")
	}
	log := c.opts.Log
	s := &Summary{InstallDir: rec.InstallDir, RecordPath: RecordPath(rec.InstallDir)}
	c.summary = s

	c.enter(StateRollingBack)
	log.Step("Uninstalling %s %s from %s", rec.AppName, rec.Version, rec.InstallDir)

	var steps []Step
	for _, path := range rec.Shortcuts {
		steps = append(steps, c.deleteShortcutStep(path))
	}
	if rec.RegistryKey != "" {
		key, perMachine := rec.RegistryKey, rec.Scope.PerMachine()
		steps = append(steps, SimpleStep("Unregister application", func() error {
			return c.opts.Registrar.Unregister(key, perMachine)
		}))
	}
	for i := len(rec.Files) - 1; i >= 0; i-- {
		steps = append(steps, c.deleteFileStep(rec.Files[i], rec.Uninstaller))
	}
	steps = append(steps, c.uninstallDeleteSteps(rec, uo)...)
	steps = append(steps, StepDeleteFile(s.RecordPath))
	for i := len(rec.Dirs) - 1; i >= 0; i-- {
		steps = append(steps, StepDeleteDirIfEmpty(rec.Dirs[i]))
	}

	errs := RunAllSteps(ctx, c.opts.Progress, steps, log)

	for _, f := range rec.Files {
		c.noteRemoved(f.Path)
	}
	for _, p := range rec.Shortcuts {
		c.noteRemoved(p)
	}
	c.enter(StateRolledBack)
	s.State = c.m.state

	if err := errors.Join(errs...); err != nil {
		log.Error("Uninstall finished with errors: %v", err)
		return s, err
	}
	log.Step("Uninstall of %s complete", rec.AppName)
	return s, nil
}

func (c *Controller) noteRemoved(path string) {
	if _, err := os.Lstat(path); isNotExist(err) {
		c.summary.Removed = append(c.summary.Removed, path)
	}
}

func (c *Controller) deleteShortcutStep(path string) Step {
	return SimpleStep(fmt.Sprintf("Delete shortcut %s", filepath.Base(path)), func() error {
		return c.opts.Shortcuts.DeleteShortcut(path)
	})
}

// deleteFileStep removes a staged file, noting when it changed since it was
// installed. The running uninstaller is deleted once it exits.
func (c *Controller) deleteFileStep(f RecordedFile, uninstaller string) Step {
	step := StepDeleteFile(f.Path)
	if f.Path == uninstaller {
		step.Action = func() StepResult {
			gone, err := platform.DeleteWhenFree(f.Path)
			if err != nil {
				return Failed(err)
			}
			if !gone {
				return Success("scheduled for removal on exit")
			}
			return Success("")
		}
	}
	remove := step.Action
	step.Action = func() StepResult {
		if want, err := ParseDigest(f.Digest); err == nil && f.Digest != "" {
			if got, err := FileDigest(f.Path); err == nil && got != want {
				c.opts.Log.Warn("%s was modified after installation", f.Path)
				c.summary.Modified = append(c.summary.Modified, f.Path)
			}
		}
		return remove()
	}
	return step
}

// uninstallDeleteSteps removes UninstallDelete paths. User data is only
// removed after ConfirmUserData agrees.
func (c *Controller) uninstallDeleteSteps(rec *Record, uo UninstallOptions) []Step {
	deleteUserData := false
	if userData := rec.UserData(); len(userData) > 0 {
		if uo.ConfirmUserData != nil && uo.ConfirmUserData(userData) {
			deleteUserData = true
		} else {
			c.opts.Log.Info("Keeping user data: %s", strings.Join(userData, ", "))
			c.summary.KeptUserData = userData
		}
	}

	var steps []Step
	for _, d := range rec.UninstallDelete {
		if d.UserData && !deleteUserData {
			continue
		}
		steps = append(steps, deleteEntrySteps(d)...)
	}
	return steps
}

// deleteEntrySteps expands a RecordedDelete, whose path may be a glob.
func deleteEntrySteps(d RecordedDelete) []Step {
	if d.Kind == setupkit.DeleteDirIfEmpty {
		return []Step{StepDeleteDirIfEmpty(d.Path)}
	}
	paths := []string{d.Path}
	if strings.ContainsAny(d.Path, "*?[") {
		matches, err := filepath.Glob(d.Path)
		if err != nil {
			return []Step{SimpleStep("Delete "+d.Path, func() error { return err })}
		}
		paths = matches
	}

	var steps []Step
	for _, p := range paths {
		if d.Kind == setupkit.DeleteFilesAndOrDirs {
			steps = append(steps, StepDeleteTree(p))
			continue
		}
		if DirExists(p) {
			continue
		}
		steps = append(steps, StepDeleteFile(p))
	}
	return steps
}
