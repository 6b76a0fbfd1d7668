package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

// Options configures a Controller. Zero values select the system defaults.
type Options struct {
	Hooks     Hooks          // Default: NopHooks
	Progress  Progress       // Optional
	Log       *Logger        // Optional; nil discards
	Shortcuts ShortcutWriter // Default: SystemShortcuts
	Registrar AppRegistrar   // Default: SystemRegistrar
	Launcher  Launcher       // Default: ExecLauncher
	CopyFile  CopyFunc       // Default: CopyExecutable

	// UninstallerSource is the program staged as {uninstallexe} when the
	// application is uninstallable. Empty stages no uninstaller program.
	UninstallerSource string

	// LaunchPrograms runs the Run entries marked PostInstall.
	LaunchPrograms bool
}

func (o *Options) defaults() {
	if o.Hooks == nil {
		o.Hooks = NopHooks{}
	}
	if o.Shortcuts == nil {
		o.Shortcuts = SystemShortcuts()
	}
	if o.Registrar == nil {
		o.Registrar = SystemRegistrar()
	}
	if o.Launcher == nil {
		o.Launcher = ExecLauncher()
	}
	if o.CopyFile == nil {
		o.CopyFile = CopyExecutable
	}
}

// Summary describes the outcome of an install or uninstall run.
type Summary struct {
	State           LifecycleState
	Action          InstallAction
	PreviousVersion string
	InstallDir      string
	Staged          []string // Files copied or replaced
	Skipped         []string // Sources skipped because they do not exist
	Shortcuts       []string
	Launched        []string
	RecordPath      string

	// Warnings are failures that did not fail the run, such as
	// *PostInstallHookError or files left behind by uninstall.
	Warnings []error

	Removed      []string // Uninstall: paths that are gone afterwards
	Modified     []string // Uninstall: files changed since installation
	KeptUserData []string // Uninstall: user data the user chose to keep
}

// Controller drives one installation through its lifecycle:
//
//	NotStarted -> Initializing -> Staging -> RegisteringShortcuts -> PostInstalling -> Completed
//
// A failure before PostInstalling moves to Failed, and when anything was
// already changed on the system, on to RollingBack and RolledBack with every
// change undone. Uninstall takes a Completed installation to RolledBack.
type Controller struct {
	cfg   *setupkit.Config
	env   Environment
	tasks *TaskSelector
	opts  Options

	m        machine
	journal  *Journal
	resolver *Resolver
	plan     *StagingPlan
	links    []ShortcutObject
	deletes  []RecordedDelete
	previous *Record
	record   *Record
	summary  *Summary
}

// NewController creates a Controller for cfg installed into env. A nil tasks
// uses the default selection.
func NewController(cfg *setupkit.Config, env Environment, tasks *TaskSelector, opts Options) *Controller {
	opts.defaults()
	if tasks == nil {
		tasks = NewTaskSelector(cfg.Tasks)
	}
	return &Controller{
		cfg:     cfg,
		env:     env,
		tasks:   tasks,
		opts:    opts,
		m:       newMachine(StateNotStarted),
		journal: NewJournal(opts.Log),
		summary: &Summary{},
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() LifecycleState { return c.m.state }

// History returns every state the controller has been in, in order.
func (c *Controller) History() []LifecycleState {
	return append([]LifecycleState(nil), c.m.history...)
}

// Tasks returns the controller's task selection.
func (c *Controller) Tasks() *TaskSelector { return c.tasks }

// Resolver returns the run's resolver, nil before Initializing completes.
func (c *Controller) Resolver() *Resolver { return c.resolver }

// Plan returns the staging plan, nil before Staging.
func (c *Controller) Plan() *StagingPlan { return c.plan }

// Record returns the uninstall record of a completed installation.
func (c *Controller) Record() *Record { return c.record }

// enter moves to the next state. The controller only requests transitions
// the table allows, so a failure here is a programming error.
func (c *Controller) enter(s LifecycleState) {
	if err := c.m.transition(s); err != nil {
		panic(err)
	}
	c.opts.Log.Z().Info().Str("state", string(s)).Msg("Lifecycle state changed")
}

// Install runs the installation. It returns a nil error when the run reached
// Completed, even with post-install warnings in the Summary. On failure every
// change made so far has been undone.
func (c *Controller) Install(ctx context.Context) (*Summary, error) {
	if c.m.state != StateNotStarted {
		return nil, fmt.Errorf("%w: install from %s", ErrInvalidTransition, c.m.state)
	}
	log := c.opts.Log
	spec := c.cfg.Spec

	c.enter(StateInitializing)
	log.Step("Installing %s %s", spec.AppName, spec.Version)

	if !c.opts.Hooks.PreCheck(ctx) {
		return c.fail(ErrVetoed)
	}
	if ctx.Err() != nil {
		return c.fail(ErrCancelled)
	}
	if err := c.initialize(); err != nil {
		return c.fail(err)
	}

	c.enter(StateStaging)
	c.tasks.Freeze()
	if err := c.prepare(); err != nil {
		return c.fail(err)
	}
	steps := make([]Step, 0, len(c.plan.Ops))
	for _, op := range c.plan.Ops {
		steps = append(steps, StepStageFile(op, c.journal, c.opts.CopyFile))
	}
	if err := RunStepsWithLogger(ctx, c.opts.Progress, steps, log); err != nil {
		return c.fail(err)
	}

	c.enter(StateRegisteringShortcuts)
	steps = c.registrar().Steps(c.links, c.journal)
	if spec.Uninstallable {
		steps = append(steps, c.registerAppStep(), c.writeRecordStep())
	}
	if err := RunStepsWithLogger(ctx, c.opts.Progress, steps, log); err != nil {
		return c.fail(err)
	}

	c.enter(StatePostInstalling)
	c.postInstall(ctx)

	c.enter(StateCompleted)
	if err := c.journal.Discard(); err != nil {
		log.Warn("%v", err)
	}
	log.Step("Installation of %s %s complete", spec.AppName, spec.Version)
	return c.finish(), nil
}

// initialize builds the resolver and looks for a previous installation.
func (c *Controller) initialize() error {
	spec := c.cfg.Spec
	c.resolver = NewResolver(spec, c.env)

	appDir, err := c.resolver.ResolvePath("{app}")
	if err != nil {
		return err
	}
	c.summary.InstallDir = appDir
	if c.uninstallerSource() != "" {
		c.resolver = c.resolver.With("uninstallexe", UninstallerPath(appDir, c.uninstallerSource()))
	}

	c.summary.Action = ActionFreshInstall
	prev, err := LoadRecord(RecordPath(appDir))
	switch {
	case err == nil && prev.AppID != spec.AppID:
		c.opts.Log.Warn("Ignoring record of a different application (%s) in %s", prev.AppID, appDir)
	case err == nil:
		c.previous = prev
		c.summary.PreviousVersion = prev.Version
		c.summary.Action = DetermineAction(prev.Version, spec.Version)
	case !isNotExist(err):
		c.opts.Log.Warn("Ignoring unreadable uninstall record: %v", err)
	}
	c.opts.Log.Info("Action: %s (install dir %s)", c.summary.Action, appDir)
	return nil
}

func (c *Controller) uninstallerSource() string {
	if !c.cfg.Spec.Uninstallable {
		return ""
	}
	return c.opts.UninstallerSource
}

// prepare resolves everything the run will write before the first write.
func (c *Controller) prepare() error {
	plan, err := BuildPlan(c.cfg.Spec, c.resolver, c.cfg.Files, c.uninstallerSource())
	if err != nil {
		return err
	}
	c.plan = plan
	c.summary.Skipped = plan.Skipped
	for _, src := range plan.Skipped {
		c.opts.Log.Info("Source %s does not exist, skipped", src)
	}

	icons := make([]setupkit.ShortcutEntry, 0, len(c.cfg.Icons))
	for _, e := range c.cfg.Icons {
		if e.Location == setupkit.LocationUninstaller && c.uninstallerSource() == "" {
			c.opts.Log.Warn("Shortcut %q skipped: no uninstaller is staged", e.Name)
			continue
		}
		icons = append(icons, e)
	}
	if c.links, err = c.registrar().Plan(icons, plan); err != nil {
		return err
	}

	for _, e := range c.cfg.UninstallDelete {
		p, err := c.resolver.ResolvePath(e.Path)
		if err != nil {
			return err
		}
		c.deletes = append(c.deletes, RecordedDelete{Path: p, Kind: e.Kind, UserData: e.UserData})
	}
	// Directories the post-install hook creates go last, in reverse order,
	// so they are removed once whatever the entries above left is gone.
	for i := len(c.cfg.CreateDirs) - 1; i >= 0; i-- {
		p, err := c.resolver.ResolvePath(c.cfg.CreateDirs[i])
		if err != nil {
			return err
		}
		c.deletes = append(c.deletes, RecordedDelete{Path: p, Kind: setupkit.DeleteDirIfEmpty})
	}
	return nil
}

func (c *Controller) registrar() *ShortcutRegistrar {
	return &ShortcutRegistrar{
		Resolver: c.resolver,
		Tasks:    c.tasks,
		Writer:   c.opts.Shortcuts,
		Log:      c.opts.Log,
	}
}

func (c *Controller) registryKey() string {
	return c.cfg.Spec.AppID + "_is1"
}

func (c *Controller) registerAppStep() Step {
	spec := c.cfg.Spec
	return Step{
		Name: "Register application",
		Action: func() StepResult {
			info := platform.AppInfo{
				DisplayName:     spec.AppName,
				DisplayVersion:  spec.Version,
				Publisher:       spec.Publisher,
				InstallLocation: c.plan.InstallDir,
				URLInfoAbout:    spec.PublisherURL,
				URLUpdateInfo:   spec.UpdatesURL,
				HelpLink:        spec.SupportURL,
				InstallDate:     time.Now().Format("20060102"),
				NoModify:        true,
				NoRepair:        true,
			}
			if src := c.uninstallerSource(); src != "" {
				exe := UninstallerPath(c.plan.InstallDir, src)
				info.UninstallString = fmt.Sprintf(`"%s" uninstall --record "%s"`, exe, RecordPath(c.plan.InstallDir))
			}
			key := c.registryKey()
			perMachine := spec.Scope.PerMachine()
			if err := c.opts.Registrar.Register(key, info, perMachine); err != nil {
				return Failed(&ShortcutCreationError{Name: "application entry", Path: key, Err: err})
			}
			c.journal.RecordUndo(ChangeAppRegistered, key, func() error {
				return c.opts.Registrar.Unregister(key, perMachine)
			})
			return Success(key)
		},
	}
}

func (c *Controller) writeRecordStep() Step {
	return Step{
		Name: "Write uninstall record",
		Action: func() StepResult {
			path := RecordPath(c.plan.InstallDir)
			fail := func(err error) StepResult {
				return Failed(&ShortcutCreationError{Name: "uninstall record", Path: path, Err: err})
			}

			rec := NewRecord(c.cfg.Spec, c.plan.InstallDir)
			rec.Tasks = append(rec.Tasks, c.tasks.Selection()...)
			rec.RegistryKey = c.registryKey()
			rec.UninstallDelete = c.deletes
			if src := c.uninstallerSource(); src != "" {
				rec.Uninstaller = UninstallerPath(c.plan.InstallDir, src)
			}
			rec.AddChanges(c.journal.Changes())
			if c.summary.Action.ReplacesInstallation() {
				rec.Merge(c.previous)
			}

			change := Change{Kind: ChangeFileCreated, Path: path}
			if FileExists(path) {
				backup, err := c.journal.Backup(path)
				if err != nil {
					return fail(err)
				}
				change = Change{Kind: ChangeFileReplaced, Path: path, Backup: backup}
			}
			c.journal.Record(change)
			if err := rec.Save(path); err != nil {
				return fail(err)
			}
			c.record = rec
			c.summary.RecordPath = path
			return Success(path)
		},
	}
}

// postInstall runs the PostInstall hook and the Run entries. Failures
// become warnings; the installation stands.
func (c *Controller) postInstall(ctx context.Context) {
	log := c.opts.Log
	warn := func(hook string, err error) {
		log.Warn("Post-install %s failed: %v", hook, err)
		c.summary.Warnings = append(c.summary.Warnings, &PostInstallHookError{Hook: hook, Err: err})
	}

	if err := c.opts.Hooks.PostInstall(ctx); err != nil {
		warn("hook", err)
	}

	for _, run := range c.cfg.Run {
		if run.PostInstall && !c.opts.LaunchPrograms {
			continue
		}
		ok, err := c.tasks.Evaluate(run.Tasks)
		if err != nil {
			warn("run "+run.Target, err)
			continue
		}
		if !ok {
			continue
		}
		target, err := c.resolver.ResolvePath(run.Target)
		if err != nil {
			warn("run "+run.Target, err)
			continue
		}
		params, err := c.resolver.Resolve(run.Parameters)
		if err != nil {
			warn("run "+run.Target, err)
			continue
		}
		if err := c.opts.Launcher.Launch(ctx, target, params, filepath.Dir(target)); err != nil {
			warn("run "+filepath.Base(target), err)
			continue
		}
		log.Info("Launched %s", target)
		c.summary.Launched = append(c.summary.Launched, target)
	}
}

// fail ends the run in Failed and undoes whatever the journal recorded.
func (c *Controller) fail(err error) (*Summary, error) {
	log := c.opts.Log
	if errors.Is(err, ErrVetoed) {
		log.Warn("Installation vetoed by pre-check")
	} else {
		log.Error("Installation failed: %v", err)
	}
	c.enter(StateFailed)

	if c.journal.Len() > 0 {
		c.enter(StateRollingBack)
		log.Step("Rolling back %d changes", c.journal.Len())
		if rerr := c.journal.Rollback(); rerr != nil {
			err = errors.Join(err, rerr)
		}
		c.enter(StateRolledBack)
	}
	return c.finish(), err
}

func (c *Controller) finish() *Summary {
	s := c.summary
	s.State = c.m.state
	if s.State == StateCompleted {
		recordPath := RecordPath(c.plan.InstallDir)
		for _, ch := range c.journal.Changes() {
			switch {
			case ch.Kind != ChangeFileCreated && ch.Kind != ChangeFileReplaced:
			case ch.Shortcut:
				s.Shortcuts = append(s.Shortcuts, ch.Path)
			case ch.Path != recordPath:
				s.Staged = append(s.Staged, ch.Path)
			}
		}
	}
	return s
}
