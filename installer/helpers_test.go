package installer

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/platform"
)

const testAppID = "0C4E1C6B-7A2D-4E1F-9B8A-3D5C6E7F8A9B"

// testEnv returns an environment whose special folders all live under a
// fresh temp directory.
func testEnv(t *testing.T, scope setupkit.Scope) Environment {
	t.Helper()
	root := t.TempDir()
	folders := make(map[string]string, len(platform.FolderTokens))
	for _, token := range platform.FolderTokens {
		folders[token] = filepath.Join(root, token)
	}
	return Environment{Scope: scope, Folders: folders}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func mustNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Lstat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("%s should not exist (err=%v)", path, err)
	}
}

// timeDateWeather returns the sample application with its sources in a
// temp directory: one executable, a desktop and a startup task, and
// shortcuts in the start menu, on the desktop and in startup.
func timeDateWeather(t *testing.T) *setupkit.Config {
	t.Helper()
	src := t.TempDir()
	writeFile(t, filepath.Join(src, "TimeDateWeather.exe"), "tdw-1.0")

	return &setupkit.Config{
		Spec: setupkit.InstallSpec{
			AppID:         testAppID,
			AppName:       "TimeDateWeather",
			Version:       "1.0.0",
			Publisher:     "Crafted Tech",
			DefaultDir:    `{autopf}\{appname}`,
			GroupName:     "{appname}",
			Scope:         setupkit.ScopeUser,
			SourceDir:     src,
			Uninstallable: true,
		},
		Files: []setupkit.FileEntry{
			{Source: "TimeDateWeather.exe", DestDir: "{app}", Flags: []setupkit.FileFlag{setupkit.FlagIgnoreVersion}},
		},
		Tasks: []setupkit.Task{
			{Name: "desktopicon", Description: "Create a desktop shortcut"},
			{Name: "startupicon", Description: "Start with Windows"},
		},
		Icons: []setupkit.ShortcutEntry{
			{Name: "{appname}", Target: `{app}\TimeDateWeather.exe`, Location: setupkit.LocationStartMenu},
			{Name: "{appname}", Target: `{app}\TimeDateWeather.exe`, Location: setupkit.LocationDesktop, Tasks: "desktopicon"},
			{Name: "{appname}", Target: `{app}\TimeDateWeather.exe`, Location: setupkit.LocationStartup, Tasks: "startupicon"},
		},
	}
}

// fakeShortcuts writes the target path into the shortcut file.
type fakeShortcuts struct {
	mu      sync.Mutex
	created []string
	failOn  string // Shortcut name that fails
}

func (f *fakeShortcuts) CreateShortcut(path string, s platform.Shortcut) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn != "" && filepath.Base(filepath.Dir(path)) == f.failOn {
		return errors.New("disk full")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s.Target), 0644); err != nil {
		return err
	}
	f.created = append(f.created, path)
	return nil
}

func (f *fakeShortcuts) DeleteShortcut(path string) error {
	return platform.DeleteShortcut(path)
}

type fakeRegistrar struct {
	mu   sync.Mutex
	keys map[string]platform.AppInfo
}

func newFakeRegistrar() *fakeRegistrar {
	return &fakeRegistrar{keys: make(map[string]platform.AppInfo)}
}

func (f *fakeRegistrar) Register(key string, info platform.AppInfo, perMachine bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys[key] = info
	return nil
}

func (f *fakeRegistrar) Unregister(key string, perMachine bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.keys, key)
	return nil
}

func (f *fakeRegistrar) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.keys[key]
	return ok
}

// snapshot lists every path below root with its content, for comparing
// filesystem state before and after a run.
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()
	out := make(map[string]string)
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			out[path] = "<dir>"
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		out[path] = string(data)
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("walk %s: %v", root, err)
	}
	return out
}

func sameSnapshot(t *testing.T, before, after map[string]string) {
	t.Helper()
	for p, v := range before {
		if after[p] != v {
			t.Errorf("%s changed: %q -> %q", p, v, after[p])
		}
	}
	for p := range after {
		if _, ok := before[p]; !ok {
			t.Errorf("%s was left behind", p)
		}
	}
}
