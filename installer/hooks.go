package installer

import (
	"context"
	"os/exec"
	"strings"

	"github.com/crafted-tech/setupkit/platform"
)

// Hooks are the points where an installer script runs its own code.
type Hooks interface {
	// PreCheck runs before anything is resolved or staged. Returning false
	// vetoes the installation; nothing on the system has changed yet.
	PreCheck(ctx context.Context) bool

	// PostInstall runs after files and shortcuts are in place. An error is
	// reported in the Summary but does not fail or undo the installation.
	PostInstall(ctx context.Context) error
}

// NopHooks accepts every installation and does nothing afterwards.
type NopHooks struct{}

// PreCheck always allows the installation.
func (NopHooks) PreCheck(context.Context) bool { return true }

// PostInstall does nothing.
func (NopHooks) PostInstall(context.Context) error { return nil }

// HookFuncs adapts plain functions to Hooks. Nil fields behave like NopHooks.
type HookFuncs struct {
	PreCheckFunc    func(ctx context.Context) bool
	PostInstallFunc func(ctx context.Context) error
}

// PreCheck calls PreCheckFunc, allowing the installation when it is nil.
func (h HookFuncs) PreCheck(ctx context.Context) bool {
	if h.PreCheckFunc == nil {
		return true
	}
	return h.PreCheckFunc(ctx)
}

// PostInstall calls PostInstallFunc when set.
func (h HookFuncs) PostInstall(ctx context.Context) error {
	if h.PostInstallFunc == nil {
		return nil
	}
	return h.PostInstallFunc(ctx)
}

// AppRegistrar maintains the system's entry for the installed application.
type AppRegistrar interface {
	Register(key string, info platform.AppInfo, perMachine bool) error
	Unregister(key string, perMachine bool) error
}

type systemRegistrar struct{}

func (systemRegistrar) Register(key string, info platform.AppInfo, perMachine bool) error {
	return platform.RegisterApp(key, info, perMachine)
}

func (systemRegistrar) Unregister(key string, perMachine bool) error {
	return platform.UnregisterApp(key, perMachine)
}

// SystemRegistrar returns the AppRegistrar of the running system.
func SystemRegistrar() AppRegistrar {
	return systemRegistrar{}
}

// Launcher starts a program without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, target, params, dir string) error
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context, target, params, dir string) error

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, target, params, dir string) error {
	return f(ctx, target, params, dir)
}

type execLauncher struct{}

func (execLauncher) Launch(_ context.Context, target, params, dir string) error {
	cmd := exec.Command(target, strings.Fields(params)...)
	cmd.Dir = dir
	if err := cmd.Start(); err != nil {
		return err
	}
	// The launched program outlives the installer.
	return cmd.Process.Release()
}

// ExecLauncher returns a Launcher that starts programs as detached processes.
func ExecLauncher() Launcher {
	return execLauncher{}
}
