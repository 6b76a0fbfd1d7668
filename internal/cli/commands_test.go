//go:build linux

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crafted-tech/setupkit/platform"
)

// fixture is an installer script for TimeDateWeather whose folders all
// point into a temp directory.
type fixture struct {
	root        string
	script      string
	uninstaller string
	logFile     string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", filepath.Join(root, "home"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(root, "cache"))

	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(src, "TimeDateWeather.exe"), []byte("tdw-1.0"), 0755); err != nil {
		t.Fatalf("write source: %v", err)
	}
	uninstaller := filepath.Join(root, "setupkit-bin")
	if err := os.WriteFile(uninstaller, []byte("setupkit"), 0755); err != nil {
		t.Fatalf("write uninstaller: %v", err)
	}

	var folders strings.Builder
	for _, token := range platform.FolderTokens {
		dir := filepath.Join(root, "sys", token)
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		fmt.Fprintf(&folders, "  %s: %q\n", token, dir)
	}

	script := filepath.Join(root, "setup.yaml")
	content := `setup:
  app_id: "{0C4E1C6B-7A2D-4E1F-9B8A-3D5C6E7F8A9B}"
  app_name: TimeDateWeather
  version: "1.0.0"
  publisher: Crafted Tech
  default_dir: '{autopf}\{appname}'
  source_dir: src
files:
  - source: TimeDateWeather.exe
    dest_dir: "{app}"
    flags: [ignoreversion]
tasks:
  - name: desktopicon
    description: Create a desktop shortcut
  - name: startupicon
    description: Start automatically
icons:
  - name: "{appname}"
    target: '{app}\TimeDateWeather.exe'
  - name: "{appname}"
    target: '{app}\TimeDateWeather.exe'
    location: desktop
    tasks: desktopicon
  - name: "{appname}"
    target: '{app}\TimeDateWeather.exe'
    location: startup
    tasks: startupicon
  - name: "Uninstall {appname}"
    location: uninstaller
post_install:
  create_dirs: ['{autoappdata}\{appname}']
folders:
` + folders.String()
	if err := os.WriteFile(script, []byte(content), 0644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	return &fixture{
		root:        root,
		script:      script,
		uninstaller: uninstaller,
		logFile:     filepath.Join(root, "setup.log"),
	}
}

func (f *fixture) sys(token string, elem ...string) string {
	return filepath.Join(append([]string{f.root, "sys", token}, elem...)...)
}

func (f *fixture) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetArgs(append([]string{"--config", f.script, "--log-file", f.logFile}, args...))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlanJSON(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "plan", "--format", "json", "--tasks", "desktopicon")
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	var view planView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode plan: %v\n%s", err, out)
	}
	appDir := f.sys("userpf", "TimeDateWeather")
	if view.InstallDir != appDir {
		t.Fatalf("install dir = %q, want %q", view.InstallDir, appDir)
	}
	if view.Package != "TimeDateWeather-1.0.0-setup.exe" {
		t.Fatalf("package = %q", view.Package)
	}
	if len(view.Tasks) != 1 || view.Tasks[0] != "desktopicon" {
		t.Fatalf("tasks = %v", view.Tasks)
	}
	if len(view.Files) != 2 {
		t.Fatalf("files = %+v, want the exe and the uninstaller", view.Files)
	}
	if view.Files[0].Dest != filepath.Join(appDir, "TimeDateWeather.exe") {
		t.Fatalf("first file dest = %q", view.Files[0].Dest)
	}
	// Start menu, desktop and uninstaller; startup is not selected.
	if len(view.Shortcuts) != 3 {
		t.Fatalf("shortcuts = %+v", view.Shortcuts)
	}

	if _, err := os.Stat(appDir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("plan must not create %s", appDir)
	}
}

func TestPlanFormats(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "plan", "--format", "yaml")
	if err != nil {
		t.Fatalf("plan yaml: %v", err)
	}
	if !strings.Contains(out, "install_dir: ") || !strings.Contains(out, "app: TimeDateWeather") {
		t.Fatalf("yaml plan missing fields:\n%s", out)
	}

	out, err = f.run(t, "plan")
	if err != nil {
		t.Fatalf("plan text: %v", err)
	}
	if !strings.HasPrefix(out, "TimeDateWeather 1.0.0 (user) -> ") {
		t.Fatalf("text plan header:\n%s", out)
	}

	if _, err := f.run(t, "plan", "--format", "xml"); err == nil {
		t.Fatal("unknown format should fail")
	}
}

func TestInstallUninstall(t *testing.T) {
	f := newFixture(t)
	appDir := f.sys("userpf", "TimeDateWeather")
	exe := filepath.Join(appDir, "TimeDateWeather.exe")
	desktop := f.sys("userdesktop", "TimeDateWeather.desktop")
	startup := f.sys("userstartup", "TimeDateWeather.desktop")

	out, err := f.run(t, "install", "--silent", "--tasks", "desktopicon", "--uninstaller", f.uninstaller)
	if err != nil {
		t.Fatalf("install: %v", err)
	}
	if !strings.Contains(out, "TimeDateWeather 1.0.0 installed to "+appDir) {
		t.Fatalf("install output:\n%s", out)
	}
	if data, err := os.ReadFile(exe); err != nil || string(data) != "tdw-1.0" {
		t.Fatalf("staged exe = %q, %v", data, err)
	}
	if _, err := os.Stat(desktop); err != nil {
		t.Fatalf("desktop shortcut: %v", err)
	}
	if _, err := os.Stat(startup); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("startup shortcut was not selected (err=%v)", err)
	}
	dataDir := f.sys("userappdata", "TimeDateWeather")
	if _, err := os.Stat(dataDir); err != nil {
		t.Fatalf("post-install data dir: %v", err)
	}
	record := filepath.Join(appDir, "unins000.json")
	if _, err := os.Stat(record); err != nil {
		t.Fatalf("uninstall record: %v", err)
	}

	out, err = f.run(t, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "Installed:    1.0.0 in "+appDir) {
		t.Fatalf("info output:\n%s", out)
	}

	if _, err := f.run(t, "uninstall", "--record", record, "--yes", "--silent"); err != nil {
		t.Fatalf("uninstall: %v", err)
	}
	for _, p := range []string{exe, desktop, record, appDir, dataDir} {
		if _, err := os.Lstat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("%s should be gone after uninstall (err=%v)", p, err)
		}
	}

	out, err = f.run(t, "info")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if !strings.Contains(out, "Installed:    no") {
		t.Fatalf("info after uninstall:\n%s", out)
	}
}

func TestInstallUnknownTask(t *testing.T) {
	f := newFixture(t)

	if _, err := f.run(t, "install", "--silent", "--tasks", "quicklaunch", "--uninstaller", f.uninstaller); err == nil {
		t.Fatal("unknown task should fail")
	}
	if _, err := os.Stat(f.sys("userpf", "TimeDateWeather")); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("nothing should be installed")
	}
}

func TestTasksAndVersion(t *testing.T) {
	f := newFixture(t)

	out, err := f.run(t, "tasks")
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if !strings.Contains(out, "[ ]  desktopicon") || !strings.Contains(out, "startupicon") {
		t.Fatalf("tasks output:\n%s", out)
	}

	SetVersion("1.2.3")
	defer SetVersion("dev")
	out, err = f.run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if out != "setupkit 1.2.3\n" {
		t.Fatalf("version output = %q", out)
	}
}

func TestSplitTasks(t *testing.T) {
	got := splitTasks([]string{"desktopicon startupicon", "", "a,b"})
	want := []string{"desktopicon", "startupicon", "a", "b"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("splitTasks = %v, want %v", got, want)
	}
}
