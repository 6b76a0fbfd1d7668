package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/installer"
)

// planView is the resolved installation shown by the plan command.
type planView struct {
	App        string         `json:"app" yaml:"app"`
	Version    string         `json:"version" yaml:"version"`
	Scope      setupkit.Scope `json:"scope" yaml:"scope"`
	Package    string         `json:"package" yaml:"package"`
	InstallDir string         `json:"install_dir" yaml:"install_dir"`
	Tasks      []string       `json:"tasks" yaml:"tasks"`
	Files      []planFile     `json:"files" yaml:"files"`
	Shortcuts  []planShortcut `json:"shortcuts" yaml:"shortcuts"`
	Skipped    []string       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

type planFile struct {
	Source string              `json:"source" yaml:"source"`
	Dest   string              `json:"dest" yaml:"dest"`
	Flags  []setupkit.FileFlag `json:"flags,omitempty" yaml:"flags,omitempty"`
}

type planShortcut struct {
	Name   string `json:"name" yaml:"name"`
	Path   string `json:"path" yaml:"path"`
	Target string `json:"target" yaml:"target"`
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	var (
		tasks  []string
		format string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what install would do, without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
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

			view, err := buildPlanView(cfg, env, selector)
			if err != nil {
				return err
			}
			return writePlan(cmd.OutOrStdout(), view, format)
		},
	}

	cmd.Flags().StringSliceVar(&tasks, "tasks", nil, "Selected tasks, replacing the defaults")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")

	return cmd
}

func buildPlanView(cfg *setupkit.Config, env installer.Environment, selector *installer.TaskSelector) (*planView, error) {
	r := installer.NewResolver(cfg.Spec, env)
	appDir, err := r.ResolvePath("{app}")
	if err != nil {
		return nil, err
	}

	var uninstaller string
	if cfg.Spec.Uninstallable {
		if uninstaller, err = os.Executable(); err != nil {
			return nil, err
		}
		r = r.With("uninstallexe", installer.UninstallerPath(appDir, uninstaller))
	}

	plan, err := installer.BuildPlan(cfg.Spec, r, cfg.Files, uninstaller)
	if err != nil {
		return nil, err
	}
	reg := &installer.ShortcutRegistrar{Resolver: r, Tasks: selector}
	links, err := reg.Plan(cfg.Icons, plan)
	if err != nil {
		return nil, err
	}

	view := &planView{
		App:        cfg.Spec.AppName,
		Version:    cfg.Spec.Version,
		Scope:      cfg.Spec.Scope,
		Package:    cfg.Spec.PackageFilename(),
		InstallDir: plan.InstallDir,
		Tasks:      selector.Selection(),
		Skipped:    plan.Skipped,
	}
	for _, op := range plan.Ops {
		view.Files = append(view.Files, planFile{Source: op.Source, Dest: op.Dest, Flags: op.Flags})
	}
	for _, l := range links {
		view.Shortcuts = append(view.Shortcuts, planShortcut{Name: l.Shortcut.Name, Path: l.Path, Target: l.Shortcut.Target})
	}
	return view, nil
}

func writePlan(w io.Writer, view *planView, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(view, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		fmt.Fprintf(w, "%s %s (%s) -> %s\n", view.App, view.Version, view.Scope, view.InstallDir)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, f := range view.Files {
			fmt.Fprintf(tw, "  file\t%s\t%s\n", f.Source, f.Dest)
		}
		for _, s := range view.Shortcuts {
			fmt.Fprintf(tw, "  shortcut\t%s\t%s\n", s.Name, s.Path)
		}
		for _, s := range view.Skipped {
			fmt.Fprintf(tw, "  skipped\t%s\t\n", s)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func newTasksCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the script's optional tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(cfg.Tasks) == 0 {
				fmt.Fprintln(out, "No optional tasks.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, t := range cfg.Tasks {
				mark := "[ ]"
				if t.Checked {
					mark = "[x]"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", mark, t.Name, t.Description, t.GroupDescription)
			}
			return tw.Flush()
		},
	}
}

func newInfoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the application and whether it is installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			spec := cfg.Spec
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Application:  %s %s\n", spec.AppName, spec.Version)
			fmt.Fprintf(out, "Publisher:    %s\n", spec.Publisher)
			fmt.Fprintf(out, "App ID:       %s\n", spec.AppID)
			fmt.Fprintf(out, "Scope:        %s\n", spec.Scope)
			fmt.Fprintf(out, "Package:      %s\n", spec.PackageFilename())

			recordPath, err := installedRecordPath(cfg)
			if err != nil {
				return err
			}
			rec, err := installer.LoadRecord(recordPath)
			switch {
			case err == nil:
				fmt.Fprintf(out, "Installed:    %s in %s (%s)\n", rec.Version, rec.InstallDir,
					installer.DetermineAction(rec.Version, spec.Version))
			case errors.Is(err, os.ErrNotExist):
				fmt.Fprintln(out, "Installed:    no")
			default:
				fmt.Fprintf(out, "Installed:    unreadable record (%v)\n", err)
			}
			return nil
		},
	}
}
