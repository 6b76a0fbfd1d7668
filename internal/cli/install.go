package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/installer"
)

func newInstallCmd(g *globalFlags) *cobra.Command {
	var (
		tasks       []string
		launch      bool
		silent      bool
		uninstaller string
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the application described by the script",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if err := requireElevation(cfg.Spec.Scope); err != nil {
				return err
			}
			release, err := lockInstance(cfg.Spec)
			if err != nil {
				return err
			}
			defer release()

			env, err := environment(cfg)
			if err != nil {
				return err
			}

			selector := installer.NewTaskSelector(cfg.Tasks)
			if cmd.Flags().Changed("tasks") {
				if err := selector.SetSelection(splitTasks(tasks)); err != nil {
					return err
				}
			}

			if uninstaller == "" && cfg.Spec.Uninstallable {
				if uninstaller, err = os.Executable(); err != nil {
					return fmt.Errorf("locate uninstaller: %w", err)
				}
			}

			log, err := g.openLog(cmd, strings.ToLower(cfg.Spec.AppName)+"-install", cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			var progress installer.Progress
			if !silent {
				bar := newProgressBar(cmd.ErrOrStderr(), "Installing "+cfg.Spec.AppName)
				defer bar.Finish()
				progress = bar
			}

			var ctrl *installer.Controller
			hooks := installer.HookFuncs{
				PostInstallFunc: func(ctx context.Context) error {
					return createDirs(ctx, ctrl.Resolver(), cfg.CreateDirs, log)
				},
			}
			ctrl = installer.NewController(cfg, env, selector, installer.Options{
				Hooks:             hooks,
				Progress:          progress,
				Log:               log,
				UninstallerSource: uninstaller,
				LaunchPrograms:    launch,
			})

			summary, err := ctrl.Install(cmd.Context())
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "\nInstallation failed (%s). Log: %s\n", summary.State, log.Path())
				return err
			}
			printInstallSummary(cmd.OutOrStdout(), cfg.Spec, summary)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&tasks, "tasks", nil, "Selected tasks, replacing the defaults (e.g. desktopicon,startupicon)")
	cmd.Flags().BoolVar(&launch, "launch", false, "Launch the application after installing")
	cmd.Flags().BoolVar(&silent, "silent", false, "Do not show progress")
	cmd.Flags().StringVar(&uninstaller, "uninstaller", "", "Program staged as the uninstaller (default: this executable)")

	return cmd
}

func splitTasks(values []string) []string {
	var names []string
	for _, v := range values {
		for _, n := range strings.Fields(strings.ReplaceAll(v, ",", " ")) {
			names = append(names, n)
		}
	}
	return names
}

// createDirs is the post-install hook that creates the script's
// post_install.create_dirs, typically the application's data folder.
func createDirs(ctx context.Context, r *installer.Resolver, templates []string, log *installer.Logger) error {
	steps := make([]installer.Step, 0, len(templates))
	for _, tmpl := range templates {
		dir, err := r.ResolvePath(tmpl)
		if err != nil {
			return err
		}
		steps = append(steps, installer.StepEnsureDir(dir))
	}
	return installer.RunStepsWithLogger(ctx, nil, steps, log)
}

func printInstallSummary(w io.Writer, spec setupkit.InstallSpec, s *installer.Summary) {
	fmt.Fprintf(w, "%s %s installed to %s (%s)\n", spec.AppName, spec.Version, s.InstallDir, s.Action)
	fmt.Fprintf(w, "  Files:     %d\n", len(s.Staged))
	for _, p := range s.Shortcuts {
		fmt.Fprintf(w, "  Shortcut:  %s\n", p)
	}
	for _, p := range s.Launched {
		fmt.Fprintf(w, "  Launched:  %s\n", filepath.Base(p))
	}
	for _, warn := range s.Warnings {
		fmt.Fprintf(w, "  Warning:   %v\n", warn)
	}
}

// progressBar reports installer progress on a terminal bar.
type progressBar struct {
	bar *progressbar.ProgressBar
}

func newProgressBar(w io.Writer, title string) *progressBar {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(title),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressBar{bar: bar}
}

func (p *progressBar) Update(percent float64, status string) {
	p.bar.Describe(status)
	_ = p.bar.Set(int(percent))
}

func (p *progressBar) Finish() {
	_ = p.bar.Finish()
}

func zerologLevel(cfg *setupkit.Config) zerolog.Level {
	if cfg == nil {
		return zerolog.InfoLevel
	}
	return cfg.LogLevel
}

func parseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("--log-level: %w", err)
	}
	return level, nil
}
