package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crafted-tech/setupkit"
	"github.com/crafted-tech/setupkit/installer"
	"github.com/crafted-tech/setupkit/platform"
)

var appVersion = "dev"

func SetVersion(v string) {
	appVersion = v
}

// Execute runs the root command. Ctrl+C cancels a running installation,
// which is then rolled back.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// globalFlags are shared by every command that reads an installer script.
type globalFlags struct {
	config    string
	sourceDir string
	folders   map[string]string
	logLevel  string
	logFile   string
	verbose   bool
}

func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "setupkit",
		Short:         "Install applications from a declarative installer script",
		Long:          "setupkit installs, inspects and uninstalls applications described by a YAML installer script.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "setup.yaml", "Installer script")
	pf.StringVar(&g.sourceDir, "source-dir", "", "Directory the script's file sources are taken from")
	pf.StringToStringVar(&g.folders, "folder", nil, "Override a folder token, e.g. --folder userdesktop=/tmp/desk")
	pf.StringVar(&g.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the script")
	pf.StringVar(&g.logFile, "log-file", "", "Append the log to this file instead of a new file in the temp directory")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Mirror the log to stderr")

	rootCmd.AddCommand(
		newInstallCmd(g),
		newUninstallCmd(g),
		newPlanCmd(g),
		newTasksCmd(g),
		newInfoCmd(g),
		newVersionCmd(),
	)

	return rootCmd
}

// load reads the installer script with the command-line overrides applied.
func (g *globalFlags) load() (*setupkit.Config, error) {
	var opts []setupkit.LoadOption
	if g.sourceDir != "" {
		opts = append(opts, setupkit.WithSourceDir(g.sourceDir))
	}
	for token, path := range g.folders {
		opts = append(opts, setupkit.WithFolder(token, path))
	}
	return setupkit.Load(g.config, opts...)
}

// environment detects the system folders and applies the script's overrides.
func environment(cfg *setupkit.Config) (installer.Environment, error) {
	env, err := installer.DetectEnvironment(cfg.Spec.Scope)
	if err != nil {
		return installer.Environment{}, fmt.Errorf("detect folders: %w", err)
	}
	for token, path := range cfg.Folders {
		env.Folders[token] = path
	}
	return env, nil
}

// openLog creates the run's log. The script's level applies unless
// --log-level overrides it.
func (g *globalFlags) openLog(cmd *cobra.Command, prefix string, cfg *setupkit.Config) (*installer.Logger, error) {
	var (
		log *installer.Logger
		err error
	)
	if g.logFile != "" {
		log, err = installer.NewLoggerToFile(g.logFile)
	} else {
		log, err = installer.NewLogger(prefix)
	}
	if err != nil {
		return nil, err
	}

	level := zerologLevel(cfg)
	if g.logLevel != "" {
		if level, err = parseLevel(g.logLevel); err != nil {
			log.Close()
			return nil, err
		}
	}
	log.SetLevel(level)
	if g.verbose {
		log.AttachConsole(cmd.ErrOrStderr())
	}
	return log, nil
}

// lockInstance makes sure only one setupkit run touches an application at a time.
func lockInstance(spec setupkit.InstallSpec) (func(), error) {
	release, ok := platform.AcquireSingleInstance("setupkit-" + spec.AppID)
	if !ok {
		return nil, fmt.Errorf("another setup of %s is already running", spec.AppName)
	}
	return release, nil
}

// requireElevation rejects per-machine runs without administrator rights.
func requireElevation(scope setupkit.Scope) error {
	if scope.PerMachine() && !platform.IsElevated() {
		return errors.New("a per-machine installation requires administrator rights")
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "setupkit %s\n", appVersion)
		},
	}
}
