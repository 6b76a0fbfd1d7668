// Package installer runs installations described by a setupkit.Config.
//
// The pieces, from the bottom up:
//   - Resolver: expands {token} templates against the app identity and the
//     system's special folders
//   - BuildPlan: turns the Files section into an ordered StagingPlan
//   - TaskSelector: the user's optional task choices and gating expressions
//   - ShortcutRegistrar: creates the shortcuts whose tasks are selected
//   - Controller: the lifecycle state machine that ties them together
//
// # Basic Usage
//
//	cfg, err := setupkit.Load("timedateweather.yaml")
//	if err != nil {
//	    return err
//	}
//	env, err := installer.DetectEnvironment(cfg.Spec.Scope)
//	if err != nil {
//	    return err
//	}
//	tasks := installer.NewTaskSelector(cfg.Tasks)
//	tasks.Select("desktopicon")
//
//	ctrl := installer.NewController(cfg, env, tasks, installer.Options{Log: log})
//	summary, err := ctrl.Install(ctx)
//
// # Rollback
//
// Every file, directory and shortcut the run creates or replaces is
// recorded in a Journal. When staging or shortcut registration fails, or
// ctx is cancelled, the journal is undone newest-first and the system is
// left as it was. Post-install failures are only reported.
//
// # Uninstall
//
// A completed installation leaves an uninstall record (unins000.json) in
// the install directory. NewUninstaller and Controller.Uninstall remove
// what it lists:
//
//	rec, err := installer.LoadRecord(path)
//	ctrl := installer.NewUninstaller(rec, installer.Options{Log: log})
//	summary, err := ctrl.Uninstall(ctx, installer.UninstallOptions{})
//
// # Step Pattern
//
// Each phase is a list of steps run in order:
//
//	type Step struct {
//	    Name   string
//	    Action func() StepResult
//	}
//
// Use SimpleStep for actions that just return error:
//
//	installer.SimpleStep("Do something", func() error {
//	    return doSomething()
//	})
package installer
