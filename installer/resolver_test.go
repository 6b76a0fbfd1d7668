package installer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/crafted-tech/setupkit"
)

func TestResolveIsDeterministic(t *testing.T) {
	env := testEnv(t, setupkit.ScopeUser)
	r := NewResolver(timeDateWeather(t).Spec, env)

	first, err := r.ResolvePath(`{app}\bin\{appname}.exe`)
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.ResolvePath(`{app}\bin\{appname}.exe`)
		if err != nil {
			t.Fatalf("ResolvePath: %v", err)
		}
		if again != first {
			t.Fatalf("run %d: %q != %q", i, again, first)
		}
	}
	want := filepath.Join(env.Folders["userpf"], "TimeDateWeather", "bin", "TimeDateWeather.exe")
	if first != want {
		t.Fatalf("got %q, want %q", first, want)
	}
}

func TestResolveScopeSelectsFolders(t *testing.T) {
	spec := timeDateWeather(t).Spec
	cases := []struct {
		scope  setupkit.Scope
		token  string
		folder string
	}{
		{setupkit.ScopeUser, "{autopf}", "userpf"},
		{setupkit.ScopeMachine, "{autopf}", "pf"},
		{setupkit.ScopeUser, "{autodesktop}", "userdesktop"},
		{setupkit.ScopeMachine, "{autodesktop}", "commondesktop"},
		{setupkit.ScopeMachine, "{autostartup}", "commonstartup"},
		{setupkit.ScopeUser, "{autoappdata}", "userappdata"},
	}
	for _, tc := range cases {
		spec.Scope = tc.scope
		env := testEnv(t, tc.scope)
		got, err := NewResolver(spec, env).ResolvePath(tc.token)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.scope, tc.token, err)
		}
		if got != env.Folders[tc.folder] {
			t.Errorf("%s %s = %q, want %q", tc.scope, tc.token, got, env.Folders[tc.folder])
		}
	}
}

func TestResolveGroup(t *testing.T) {
	env := testEnv(t, setupkit.ScopeUser)
	got, err := NewResolver(timeDateWeather(t).Spec, env).ResolvePath("{group}")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if want := filepath.Join(env.Folders["userprograms"], "TimeDateWeather"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolveUndefinedToken(t *testing.T) {
	r := NewResolver(timeDateWeather(t).Spec, testEnv(t, setupkit.ScopeUser))

	_, err := r.Resolve(`{app}\{nosuchfolder}\x`)
	var ute *UnresolvedTokenError
	if !errors.As(err, &ute) {
		t.Fatalf("expected UnresolvedTokenError, got %v", err)
	}
	if ute.Token != "nosuchfolder" || ute.Cycle {
		t.Fatalf("unexpected error: %+v", ute)
	}
}

func TestResolveUnterminatedToken(t *testing.T) {
	r := NewResolver(timeDateWeather(t).Spec, testEnv(t, setupkit.ScopeUser))
	var ute *UnresolvedTokenError
	if _, err := r.Resolve("{app"); !errors.As(err, &ute) {
		t.Fatalf("expected UnresolvedTokenError, got %v", err)
	}
}

func TestResolveCycle(t *testing.T) {
	env := Environment{Scope: setupkit.ScopeUser, Folders: map[string]string{
		"a": `{b}\x`,
		"b": `{a}\y`,
	}}
	_, err := NewResolver(timeDateWeather(t).Spec, env).Resolve("{a}")
	var ute *UnresolvedTokenError
	if !errors.As(err, &ute) || !ute.Cycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestResolveEscapesAndCase(t *testing.T) {
	r := NewResolver(timeDateWeather(t).Spec, testEnv(t, setupkit.ScopeUser))

	got, err := r.Resolve("{{literal} {AppName} {VERSION}")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if want := "{literal} TimeDateWeather 1.0.0"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestResolvePathMustBeAbsolute(t *testing.T) {
	r := NewResolver(timeDateWeather(t).Spec, testEnv(t, setupkit.ScopeUser))
	if _, err := r.ResolvePath(`{appname}\data`); !errors.Is(err, ErrRelativePath) {
		t.Fatalf("expected ErrRelativePath, got %v", err)
	}
}

func TestResolverWithDoesNotMutate(t *testing.T) {
	r := NewResolver(timeDateWeather(t).Spec, testEnv(t, setupkit.ScopeUser))
	r2 := r.With("uninstallexe", "/opt/x/unins000")

	if _, err := r.Lookup("uninstallexe"); err == nil {
		t.Fatal("With changed the original resolver")
	}
	got, err := r2.Lookup("UninstallExe")
	if err != nil || got != "/opt/x/unins000" {
		t.Fatalf("Lookup = %q, %v", got, err)
	}
}

func TestResolveFolderPathsAreLiteral(t *testing.T) {
	env := testEnv(t, setupkit.ScopeUser)
	braced := filepath.Join(env.Folders["userpf"], "x{y}")
	env.Folders["userpf"] = braced

	got, err := NewResolver(timeDateWeather(t).Spec, env).ResolvePath("{app}")
	if err != nil {
		t.Fatalf("ResolvePath: %v", err)
	}
	if want := filepath.Join(braced, "TimeDateWeather"); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
