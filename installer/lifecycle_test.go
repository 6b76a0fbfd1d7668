package installer

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

func envRoot(env Environment) string {
	return filepath.Dir(env.Folders[platform.FolderProgramFiles])
}

func TestInstallTimeDateWeather(t *testing.T) {
	cfg := timeDateWeather(t)
	env := testEnv(t, setupkit.ScopeUser)
	tasks := NewTaskSelector(cfg.Tasks)
	if err := tasks.Select("desktopicon"); err != nil {
		t.Fatal(err)
	}
	reg := newFakeRegistrar()

	ctrl := NewController(cfg, env, tasks, Options{Shortcuts: &fakeShortcuts{}, Registrar: reg})
	summary, err := ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}

	wantHistory := []LifecycleState{
		StateNotStarted, StateInitializing, StateStaging,
		StateRegisteringShortcuts, StatePostInstalling, StateCompleted,
	}
	if !reflect.DeepEqual(ctrl.History(), wantHistory) {
		t.Fatalf("history = %v", ctrl.History())
	}

	appDir := filepath.Join(env.Folders["userpf"], "TimeDateWeather")
	exe := filepath.Join(appDir, "TimeDateWeather.exe")
	if got := readFile(t, exe); got != "tdw-1.0" {
		t.Fatalf("exe content = %q", got)
	}
	if len(summary.Staged) != 1 || summary.Staged[0] != exe {
		t.Fatalf("staged = %v", summary.Staged)
	}

	menu := platform.ShortcutPath(filepath.Join(env.Folders["userprograms"], "TimeDateWeather"), "TimeDateWeather", false)
	desk := platform.ShortcutPath(env.Folders["userdesktop"], "TimeDateWeather", false)
	startup := platform.ShortcutPath(env.Folders["userstartup"], "TimeDateWeather", true)
	if !reflect.DeepEqual(summary.Shortcuts, []string{menu, desk}) {
		t.Fatalf("shortcuts = %v", summary.Shortcuts)
	}
	if readFile(t, desk) != exe {
		t.Fatal("desktop shortcut does not point at the staged executable")
	}
	mustNotExist(t, startup)

	if summary.Action != ActionFreshInstall {
		t.Fatalf("action = %s", summary.Action)
	}
	if !reg.has(testAppID + "_is1") {
		t.Fatal("application entry not registered")
	}
	rec, err := LoadRecord(RecordPath(appDir))
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if !reflect.DeepEqual(rec.Tasks, []string{"desktopicon"}) || len(rec.Files) != 1 || len(rec.Shortcuts) != 2 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if !tasks.Frozen() {
		t.Fatal("task selection should be frozen after install")
	}
}

func TestInstallVetoLeavesSystemUntouched(t *testing.T) {
	cfg := timeDateWeather(t)
	env := testEnv(t, setupkit.ScopeUser)
	before := snapshot(t, envRoot(env))

	postInstallRan := false
	ctrl := NewController(cfg, env, nil, Options{
		Shortcuts: &fakeShortcuts{},
		Registrar: newFakeRegistrar(),
		Hooks: HookFuncs{
			PreCheckFunc:    func(context.Context) bool { return false },
			PostInstallFunc: func(context.Context) error { postInstallRan = true; return nil },
		},
	})
	summary, err := ctrl.Install(context.Background())
	if !errors.Is(err, ErrVetoed) {
		t.Fatalf("expected ErrVetoed, got %v", err)
	}
	if summary.State != StateFailed {
		t.Fatalf("state = %s", summary.State)
	}
	want := []LifecycleState{StateNotStarted, StateInitializing, StateFailed}
	if !reflect.DeepEqual(ctrl.History(), want) {
		t.Fatalf("history = %v", ctrl.History())
	}
	if postInstallRan {
		t.Fatal("post-install ran after a veto")
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
}

func TestInstallCopyFailureRollsBack(t *testing.T) {
	cfg := timeDateWeather(t)
	writeFile(t, filepath.Join(cfg.Spec.SourceDir, "A.exe"), "new A")
	writeFile(t, filepath.Join(cfg.Spec.SourceDir, "B.dll"), "new B")
	cfg.Files = []setupkit.FileEntry{
		{Source: "A.exe", DestDir: "{app}", Flags: []setupkit.FileFlag{setupkit.FlagIgnoreVersion}},
		{Source: "B.dll", DestDir: `{app}\lib`},
	}
	cfg.Icons = []setupkit.ShortcutEntry{{Name: "A", Target: `{app}\A.exe`, Location: setupkit.LocationStartMenu}}
	env := testEnv(t, setupkit.ScopeUser)
	// A previous A.exe must come back after the rollback.
	writeFile(t, filepath.Join(env.Folders["userpf"], "TimeDateWeather", "A.exe"), "old A")
	before := snapshot(t, envRoot(env))

	copyFn := func(src, dst string) error {
		if filepath.Base(dst) == "B.dll" {
			return errors.New("disk full")
		}
		return CopyFile(src, dst)
	}
	ctrl := NewController(cfg, env, nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar(), CopyFile: copyFn})
	summary, err := ctrl.Install(context.Background())

	var cfe *CopyFailedError
	if !errors.As(err, &cfe) || filepath.Base(cfe.Dest) != "B.dll" {
		t.Fatalf("expected CopyFailedError for B.dll, got %v", err)
	}
	if summary.State != StateRolledBack {
		t.Fatalf("state = %s", summary.State)
	}
	want := []LifecycleState{StateNotStarted, StateInitializing, StateStaging, StateFailed, StateRollingBack, StateRolledBack}
	if !reflect.DeepEqual(ctrl.History(), want) {
		t.Fatalf("history = %v", ctrl.History())
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
}

func TestInstallShortcutFailureRollsBack(t *testing.T) {
	cfg := timeDateWeather(t)
	env := testEnv(t, setupkit.ScopeUser)
	tasks := NewTaskSelector(cfg.Tasks)
	if err := tasks.Select("desktopicon"); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, envRoot(env))
	reg := newFakeRegistrar()

	ctrl := NewController(cfg, env, tasks, Options{
		Shortcuts: &fakeShortcuts{failOn: "userdesktop"},
		Registrar: reg,
	})
	summary, err := ctrl.Install(context.Background())

	var sce *ShortcutCreationError
	if !errors.As(err, &sce) {
		t.Fatalf("expected ShortcutCreationError, got %v", err)
	}
	if summary.State != StateRolledBack {
		t.Fatalf("state = %s", summary.State)
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
	if reg.has(testAppID + "_is1") {
		t.Fatal("application entry left registered")
	}
}

func TestInstallPreflightErrorDoesNotRollBack(t *testing.T) {
	cfg := timeDateWeather(t)
	cfg.Files = append(cfg.Files, setupkit.FileEntry{Source: "missing.dll", DestDir: "{app}"})
	env := testEnv(t, setupkit.ScopeUser)
	before := snapshot(t, envRoot(env))

	ctrl := NewController(cfg, env, nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()})
	summary, err := ctrl.Install(context.Background())
	var sme *SourceMissingError
	if !errors.As(err, &sme) {
		t.Fatalf("expected SourceMissingError, got %v", err)
	}
	if summary.State != StateFailed {
		t.Fatalf("state = %s, nothing was changed so there is nothing to roll back", summary.State)
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
}

func TestInstallCancelRollsBack(t *testing.T) {
	cfg := timeDateWeather(t)
	writeFile(t, filepath.Join(cfg.Spec.SourceDir, "weather.dll"), "dll")
	cfg.Files = append(cfg.Files, setupkit.FileEntry{Source: "weather.dll", DestDir: "{app}"})
	env := testEnv(t, setupkit.ScopeUser)
	before := snapshot(t, envRoot(env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	copyFn := func(src, dst string) error {
		cancel() // cancelled while the first file is copied
		return CopyFile(src, dst)
	}
	ctrl := NewController(cfg, env, nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar(), CopyFile: copyFn})
	summary, err := ctrl.Install(ctx)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if summary.State != StateRolledBack {
		t.Fatalf("state = %s", summary.State)
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
}

func TestInstallPostInstallErrorIsNotFatal(t *testing.T) {
	cfg := timeDateWeather(t)
	cfg.Run = []setupkit.RunEntry{
		{Target: `{app}\TimeDateWeather.exe`, PostInstall: true},
		{Target: `{app}\TimeDateWeather.exe`, Parameters: "--register", Tasks: "startupicon"},
	}
	env := testEnv(t, setupkit.ScopeUser)

	var launched []string
	launcher := LauncherFunc(func(_ context.Context, target, params, dir string) error {
		launched = append(launched, target+" "+params)
		return errors.New("no display")
	})
	ctrl := NewController(cfg, env, nil, Options{
		Shortcuts:      &fakeShortcuts{},
		Registrar:      newFakeRegistrar(),
		Launcher:       launcher,
		LaunchPrograms: true,
		Hooks: HookFuncs{PostInstallFunc: func(context.Context) error {
			return errors.New("could not create settings")
		}},
	})
	summary, err := ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	if summary.State != StateCompleted {
		t.Fatalf("state = %s", summary.State)
	}
	if len(summary.Warnings) != 2 {
		t.Fatalf("warnings = %v", summary.Warnings)
	}
	for _, w := range summary.Warnings {
		var phe *PostInstallHookError
		if !errors.As(w, &phe) {
			t.Fatalf("warning %v is not a PostInstallHookError", w)
		}
	}
	// The startupicon entry is gated off.
	if len(launched) != 1 {
		t.Fatalf("launched = %v", launched)
	}
	if !FileExists(filepath.Join(env.Folders["userpf"], "TimeDateWeather", "TimeDateWeather.exe")) {
		t.Fatal("installation was undone by a post-install failure")
	}
}

func TestInstallTwiceIsRejected(t *testing.T) {
	cfg := timeDateWeather(t)
	ctrl := NewController(cfg, testEnv(t, setupkit.ScopeUser), nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()})
	if _, err := ctrl.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if _, err := ctrl.Install(context.Background()); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestInstallUninstallRoundTrip(t *testing.T) {
	cfg := timeDateWeather(t)
	cfg.UninstallDelete = []setupkit.UninstallDeleteEntry{
		{Path: `{app}\*.log`, Kind: setupkit.DeleteFiles},
		{Path: `{userappdata}\TimeDateWeather`, Kind: setupkit.DeleteFilesAndOrDirs, UserData: true},
	}
	uninstaller := filepath.Join(t.TempDir(), "setupkit")
	writeFile(t, uninstaller, "uninstaller")
	cfg.Icons = append(cfg.Icons, setupkit.ShortcutEntry{
		Name: "Uninstall {appname}", Target: "{uninstallexe}", Location: setupkit.LocationUninstaller,
	})

	env := testEnv(t, setupkit.ScopeUser)
	before := snapshot(t, envRoot(env))
	tasks := NewTaskSelector(cfg.Tasks)
	if err := tasks.Select("desktopicon", "startupicon"); err != nil {
		t.Fatal(err)
	}
	reg := newFakeRegistrar()
	opts := Options{Shortcuts: &fakeShortcuts{}, Registrar: reg, UninstallerSource: uninstaller}

	summary, err := NewController(cfg, env, tasks, opts).Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	appDir := summary.InstallDir
	if readFile(t, filepath.Join(appDir, "unins000")) != "uninstaller" {
		t.Fatal("uninstaller not staged")
	}

	// Data the application creates while running.
	settings := filepath.Join(env.Folders["userappdata"], "TimeDateWeather", "settings.json")
	writeFile(t, settings, "{}")
	writeFile(t, filepath.Join(appDir, "run.log"), "log")

	rec, err := LoadRecord(summary.RecordPath)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	var asked []string
	un := NewUninstaller(rec, opts)
	result, err := un.Uninstall(context.Background(), UninstallOptions{
		ConfirmUserData: func(paths []string) bool { asked = paths; return false },
	})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if result.State != StateRolledBack {
		t.Fatalf("state = %s", result.State)
	}
	if len(asked) != 1 || !reflect.DeepEqual(result.KeptUserData, asked) {
		t.Fatalf("asked = %v, kept = %v", asked, result.KeptUserData)
	}
	if reg.has(testAppID + "_is1") {
		t.Fatal("application entry still registered")
	}
	if readFile(t, settings) != "{}" {
		t.Fatal("declined user data was removed")
	}

	// Everything but the kept user data is gone.
	after := snapshot(t, envRoot(env))
	for p := range after {
		if _, ok := before[p]; ok {
			continue
		}
		rel, _ := filepath.Rel(env.Folders["userappdata"], p)
		if rel == "." || filepath.Dir(rel) == "." || rel == filepath.Join("TimeDateWeather", "settings.json") {
			continue
		}
		t.Errorf("%s was left behind", p)
	}
}

func TestUninstallRemovesConfirmedUserData(t *testing.T) {
	cfg := timeDateWeather(t)
	cfg.UninstallDelete = []setupkit.UninstallDeleteEntry{
		{Path: `{userappdata}\TimeDateWeather`, Kind: setupkit.DeleteFilesAndOrDirs, UserData: true},
	}
	env := testEnv(t, setupkit.ScopeUser)
	ctrl := NewController(cfg, env, nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()})
	if _, err := ctrl.Install(context.Background()); err != nil {
		t.Fatalf("Install: %v", err)
	}
	dataDir := filepath.Join(env.Folders["userappdata"], "TimeDateWeather")
	writeFile(t, filepath.Join(dataDir, "settings.json"), "{}")

	summary, err := ctrl.Uninstall(context.Background(), UninstallOptions{
		ConfirmUserData: func([]string) bool { return true },
	})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	mustNotExist(t, dataDir)
	mustNotExist(t, summary.InstallDir)
	if len(summary.KeptUserData) != 0 {
		t.Fatalf("kept = %v", summary.KeptUserData)
	}
}

func TestUninstallReportsModifiedFiles(t *testing.T) {
	cfg := timeDateWeather(t)
	ctrl := NewController(cfg, testEnv(t, setupkit.ScopeUser), nil, Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()})
	installed, err := ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("Install: %v", err)
	}
	exe := installed.Staged[0]
	writeFile(t, exe, "patched by the user")

	summary, err := ctrl.Uninstall(context.Background(), UninstallOptions{})
	if err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if !reflect.DeepEqual(summary.Modified, []string{exe}) {
		t.Fatalf("modified = %v", summary.Modified)
	}
	mustNotExist(t, exe)
}

func TestUpgradeMergesRecord(t *testing.T) {
	cfg := timeDateWeather(t)
	env := testEnv(t, setupkit.ScopeUser)
	opts := Options{Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()}
	first, err := NewController(cfg, env, nil, opts).Install(context.Background())
	if err != nil {
		t.Fatalf("first Install: %v", err)
	}

	next := timeDateWeather(t)
	next.Spec.Version = "1.1.0"
	writeFile(t, filepath.Join(next.Spec.SourceDir, "TimeDateWeather.exe"), "tdw-1.1")
	writeFile(t, filepath.Join(next.Spec.SourceDir, "weather.dll"), "dll")
	next.Files = append(next.Files, setupkit.FileEntry{Source: "weather.dll", DestDir: "{app}"})

	ctrl := NewController(next, env, nil, opts)
	summary, err := ctrl.Install(context.Background())
	if err != nil {
		t.Fatalf("upgrade Install: %v", err)
	}
	if summary.Action != ActionUpgrade || summary.PreviousVersion != "1.0.0" {
		t.Fatalf("action = %s from %q", summary.Action, summary.PreviousVersion)
	}
	if readFile(t, first.Staged[0]) != "tdw-1.1" {
		t.Fatal("executable not upgraded")
	}
	rec := ctrl.Record()
	if rec.Version != "1.1.0" || len(rec.Files) != 2 || len(rec.Dirs) == 0 {
		t.Fatalf("unexpected merged record: %+v", rec)
	}

	if _, err := ctrl.Uninstall(context.Background(), UninstallOptions{}); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	mustNotExist(t, summary.InstallDir)
}

func TestUninstallRemovesCreatedDirs(t *testing.T) {
	cfg := timeDateWeather(t)
	cfg.CreateDirs = []string{`{userappdata}\{appname}`, `{userappdata}\{appname}\cache`}
	env := testEnv(t, setupkit.ScopeUser)
	writeFile(t, filepath.Join(env.Folders["userappdata"], "other.ini"), "x")
	before := snapshot(t, envRoot(env))

	var ctrl *Controller
	hooks := HookFuncs{PostInstallFunc: func(ctx context.Context) error {
		steps := make([]Step, 0, len(cfg.CreateDirs))
		for _, tmpl := range cfg.CreateDirs {
			dir, err := ctrl.Resolver().ResolvePath(tmpl)
			if err != nil {
				return err
			}
			steps = append(steps, StepEnsureDir(dir))
		}
		return RunSteps(ctx, nil, steps)
	}}
	ctrl = NewController(cfg, env, nil, Options{Hooks: hooks, Shortcuts: &fakeShortcuts{}, Registrar: newFakeRegistrar()})
	summary, err := ctrl.Install(context.Background())
	if err != nil || len(summary.Warnings) != 0 {
		t.Fatalf("Install: %v, warnings %v", err, summary.Warnings)
	}
	cache := filepath.Join(env.Folders["userappdata"], "TimeDateWeather", "cache")
	if !DirExists(cache) {
		t.Fatalf("%s was not created", cache)
	}

	rec := ctrl.Record()
	if len(rec.UninstallDelete) != 2 || rec.UninstallDelete[0].Path != cache || rec.UninstallDelete[1].Kind != setupkit.DeleteDirIfEmpty {
		t.Fatalf("record deletes = %+v", rec.UninstallDelete)
	}

	if _, err := ctrl.Uninstall(context.Background(), UninstallOptions{}); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	sameSnapshot(t, before, snapshot(t, envRoot(env)))
}
