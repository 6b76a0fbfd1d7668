package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/installer"
)

func newUninstallCmd(g *globalFlags) *cobra.Command {
	var (
		recordPath     string
		deleteUserData bool
		yes            bool
		silent         bool
	)

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove an installed application",
		Long: "Remove everything an installation recorded in its uninstall record. " +
			"Without --record, the record is looked up in the install directory of the script's application.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *setupkit.Config
			if recordPath == "" {
				var err error
				if cfg, err = g.load(); err != nil {
					return err
				}
				if recordPath, err = installedRecordPath(cfg); err != nil {
					return err
				}
			}

			rec, err := installer.LoadRecord(recordPath)
			if err != nil {
				return fmt.Errorf("load uninstall record: %w", err)
			}
			if err := requireElevation(rec.Scope); err != nil {
				return err
			}
			release, err := lockInstance(setupkit.InstallSpec{AppID: rec.AppID, AppName: rec.AppName})
			if err != nil {
				return err
			}
			defer release()

			log, err := g.openLog(cmd, strings.ToLower(rec.AppName)+"-uninstall", cfg)
			if err != nil {
				return err
			}
			defer log.Close()

			var progress installer.Progress
			if !silent {
				bar := newProgressBar(cmd.ErrOrStderr(), "Uninstalling "+rec.AppName)
				defer bar.Finish()
				progress = bar
			}

			confirm := func(paths []string) bool {
				switch {
				case deleteUserData:
					return true
				case yes || !isInteractive(cmd.InOrStdin()):
					return false
				default:
					return askYesNo(cmd.InOrStdin(), cmd.ErrOrStderr(),
						fmt.Sprintf("Also remove your %s settings and data?\n  %s\n", rec.AppName, strings.Join(paths, "\n  ")))
				}
			}

			ctrl := installer.NewUninstaller(rec, installer.Options{Log: log, Progress: progress})
			summary, err := ctrl.Uninstall(cmd.Context(), installer.UninstallOptions{ConfirmUserData: confirm})

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s removed from %s\n", rec.AppName, rec.Version, rec.InstallDir)
			for _, p := range summary.Modified {
				fmt.Fprintf(out, "  Modified after install: %s\n", p)
			}
			for _, p := range summary.KeptUserData {
				fmt.Fprintf(out, "  Kept: %s\n", p)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Some items could not be removed. Log: %s\n", log.Path())
			}
			return err
		},
	}

	cmd.Flags().StringVar(&recordPath, "record", "", "Uninstall record (unins000.json)")
	cmd.Flags().BoolVar(&deleteUserData, "delete-user-data", false, "Also remove user settings and data without asking")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask questions; user data is kept unless --delete-user-data")
	cmd.Flags().BoolVar(&silent, "silent", false, "Do not show progress")

	return cmd
}

// installedRecordPath finds the record of the script's application on this system.
func installedRecordPath(cfg *setupkit.Config) (string, error) {
	env, err := environment(cfg)
	if err != nil {
		return "", err
	}
	dir, err := installer.NewResolver(cfg.Spec, env).ResolvePath("{app}")
	if err != nil {
		return "", err
	}
	return installer.RecordPath(dir), nil
}

// isInteractive reports whether r is a terminal a question can be asked on.
func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func askYesNo(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s[y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
