package installer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

// ShortcutWriter creates and removes shortcut files.
type ShortcutWriter interface {
	CreateShortcut(path string, s platform.Shortcut) error
	DeleteShortcut(path string) error
}

type systemShortcuts struct{}

func (systemShortcuts) CreateShortcut(path string, s platform.Shortcut) error {
	return platform.CreateShortcut(path, s)
}

func (systemShortcuts) DeleteShortcut(path string) error {
	return platform.DeleteShortcut(path)
}

// SystemShortcuts returns the ShortcutWriter of the running system.
func SystemShortcuts() ShortcutWriter {
	return systemShortcuts{}
}

// locationDirs is the folder template each shortcut location writes into.
var locationDirs = map[setupkit.Location]string{
	setupkit.LocationStartMenu:   "{group}",
	setupkit.LocationUninstaller: "{group}",
	setupkit.LocationDesktop:     "{autodesktop}",
	setupkit.LocationStartup:     "{autostartup}",
}

// ShortcutObject is a resolved shortcut ready to be written.
type ShortcutObject struct {
	Entry    setupkit.ShortcutEntry
	Path     string
	Shortcut platform.Shortcut
}

// ShortcutRegistrar turns shortcut declarations into shortcut files. An
// entry is only materialized when its gating expression holds for the
// task selection, and only for a target the staging plan installs.
type ShortcutRegistrar struct {
	Resolver *Resolver
	Tasks    *TaskSelector
	Writer   ShortcutWriter // Defaults to SystemShortcuts
	Log      *Logger
}

// Plan resolves entries without touching the filesystem. Entries whose
// gating expression does not hold are left out.
func (r *ShortcutRegistrar) Plan(entries []setupkit.ShortcutEntry, plan *StagingPlan) ([]ShortcutObject, error) {
	var objs []ShortcutObject
	for _, e := range entries {
		if r.Tasks != nil {
			ok, err := r.Tasks.Evaluate(e.Tasks)
			if err != nil {
				return nil, &ShortcutCreationError{Name: e.Name, Err: err}
			}
			if !ok {
				r.Log.Info("Shortcut %q not selected (tasks: %s)", e.Name, e.Tasks)
				continue
			}
		}
		obj, err := r.resolve(e)
		if err != nil {
			return nil, err
		}
		if plan != nil && !plan.Contains(obj.Shortcut.Target) {
			return nil, &ShortcutCreationError{
				Name: obj.Shortcut.Name,
				Path: obj.Path,
				Err:  fmt.Errorf("%w: %s", ErrTargetNotStaged, obj.Shortcut.Target),
			}
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

func (r *ShortcutRegistrar) resolve(e setupkit.ShortcutEntry) (ShortcutObject, error) {
	name, err := r.Resolver.Resolve(e.Name)
	if err != nil {
		return ShortcutObject{}, err
	}
	dirTemplate, ok := locationDirs[e.Location]
	if !ok {
		dirTemplate = locationDirs[setupkit.LocationStartMenu]
	}
	dir, err := r.Resolver.ResolvePath(dirTemplate)
	if err != nil {
		return ShortcutObject{}, err
	}
	target, err := r.Resolver.ResolvePath(e.Target)
	if err != nil {
		return ShortcutObject{}, err
	}
	sc := platform.Shortcut{Name: name, Target: target}
	if sc.Arguments, err = r.Resolver.Resolve(e.Parameters); err != nil {
		return ShortcutObject{}, err
	}
	if sc.Description, err = r.Resolver.Resolve(e.Comment); err != nil {
		return ShortcutObject{}, err
	}
	if e.WorkingDir != "" {
		if sc.WorkingDir, err = r.Resolver.ResolvePath(e.WorkingDir); err != nil {
			return ShortcutObject{}, err
		}
	}
	path := platform.ShortcutPath(dir, name, e.Location == setupkit.LocationStartup)
	if !plainName(name) || !within(dir, path) || filepath.Dir(path) != dir {
		return ShortcutObject{}, &ShortcutCreationError{
			Name: name,
			Path: path,
			Err:  fmt.Errorf("%w: %q", ErrShortcutName, name),
		}
	}
	return ShortcutObject{Entry: e, Path: path, Shortcut: sc}, nil
}

// Steps returns one step per shortcut. Each step journals the file it
// creates or replaces in j. Creating the same shortcut twice leaves one file.
func (r *ShortcutRegistrar) Steps(objs []ShortcutObject, j *Journal) []Step {
	w := r.Writer
	if w == nil {
		w = SystemShortcuts()
	}
	steps := make([]Step, 0, len(objs))
	for _, obj := range objs {
		obj := obj
		steps = append(steps, Step{
			Name: fmt.Sprintf("Create shortcut %s", obj.Shortcut.Name),
			Action: func() StepResult {
				fail := func(err error) StepResult {
					return Failed(&ShortcutCreationError{Name: obj.Shortcut.Name, Path: obj.Path, Err: err})
				}
				if !FileExists(obj.Shortcut.Target) {
					return fail(fmt.Errorf("%w: %s", ErrTargetNotStaged, obj.Shortcut.Target))
				}
				if err := j.EnsureDir(filepath.Dir(obj.Path)); err != nil {
					return fail(err)
				}
				change := Change{Kind: ChangeFileCreated, Path: obj.Path, Shortcut: true}
				if FileExists(obj.Path) {
					backup, err := j.Backup(obj.Path)
					if err != nil {
						return fail(err)
					}
					change.Kind = ChangeFileReplaced
					change.Backup = backup
				}
				j.Record(change)
				if err := w.CreateShortcut(obj.Path, obj.Shortcut); err != nil {
					return fail(err)
				}
				return Success(obj.Path)
			},
		})
	}
	return steps
}

// Register plans and writes shortcuts in one go, outside a Controller run.
func (r *ShortcutRegistrar) Register(entries []setupkit.ShortcutEntry, plan *StagingPlan, j *Journal) ([]ShortcutObject, error) {
	objs, err := r.Plan(entries, plan)
	if err != nil {
		return nil, err
	}
	for _, step := range r.Steps(objs, j) {
		if res := step.Action(); res.Err != nil {
			return nil, res.Err
		}
	}
	return objs, nil
}

// plainName reports whether name can be used as a file name as is.
func plainName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "." || trimmed == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\:*?"<>|`)
}
