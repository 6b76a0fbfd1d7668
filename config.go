package setupkit

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	goversion "github.com/hashicorp/go-version"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// ErrInvalidConfig is the Kind of every ConfigError.
var ErrInvalidConfig = errors.New("invalid installer script")

// ConfigError reports a malformed installer script entry.
type ConfigError struct {
	Field string // e.g. "files[1].flags"
	Msg   string
}

func (e *ConfigError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidConfig, e.Field, e.Msg)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

func invalidf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Config is a loaded and validated installer script.
type Config struct {
	Spec            InstallSpec
	Files           []FileEntry
	Tasks           []Task
	Icons           []ShortcutEntry
	Run             []RunEntry
	UninstallDelete []UninstallDeleteEntry

	// Folders overrides special-folder tokens of the running system.
	Folders map[string]string

	// CreateDirs are directory templates created by the post-install hook.
	// The uninstall record lists them as dirifempty deletes.
	CreateDirs []string

	LogLevel zerolog.Level

	// Path is the installer script file the config was read from.
	Path string
}

// TaskNames returns the set of declared task names.
func (c *Config) TaskNames() map[string]bool {
	names := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		names[t.Name] = true
	}
	return names
}

type rawSetup struct {
	AppID              string `mapstructure:"app_id"`
	AppName            string `mapstructure:"app_name"`
	Version            string `mapstructure:"version"`
	Publisher          string `mapstructure:"publisher"`
	PublisherURL       string `mapstructure:"publisher_url"`
	SupportURL         string `mapstructure:"support_url"`
	UpdatesURL         string `mapstructure:"updates_url"`
	DefaultDir         string `mapstructure:"default_dir"`
	GroupName          string `mapstructure:"group_name"`
	Scope              string `mapstructure:"scope"`
	OutputBaseFilename string `mapstructure:"output_base_filename"`
	SourceDir          string `mapstructure:"source_dir"`
	Uninstallable      bool   `mapstructure:"uninstallable"`
}

type rawFile struct {
	Source   string   `mapstructure:"source"`
	DestDir  string   `mapstructure:"dest_dir"`
	DestName string   `mapstructure:"dest_name"`
	Flags    []string `mapstructure:"flags"`
}

type rawTask struct {
	Name             string `mapstructure:"name"`
	Description      string `mapstructure:"description"`
	GroupDescription string `mapstructure:"group_description"`
	Checked          bool   `mapstructure:"checked"`
}

type rawIcon struct {
	Name       string `mapstructure:"name"`
	Target     string `mapstructure:"target"`
	Location   string `mapstructure:"location"`
	Tasks      string `mapstructure:"tasks"`
	Parameters string `mapstructure:"parameters"`
	WorkingDir string `mapstructure:"working_dir"`
	Comment    string `mapstructure:"comment"`
}

type rawRun struct {
	Target      string `mapstructure:"target"`
	Parameters  string `mapstructure:"parameters"`
	Description string `mapstructure:"description"`
	PostInstall bool   `mapstructure:"post_install"`
	Tasks       string `mapstructure:"tasks"`
}

type rawUninstallDelete struct {
	Path     string `mapstructure:"path"`
	Kind     string `mapstructure:"kind"`
	UserData bool   `mapstructure:"user_data"`
}

type rawConfig struct {
	Setup           rawSetup             `mapstructure:"setup"`
	Files           []rawFile            `mapstructure:"files"`
	Tasks           []rawTask            `mapstructure:"tasks"`
	Icons           []rawIcon            `mapstructure:"icons"`
	Run             []rawRun             `mapstructure:"run"`
	UninstallDelete []rawUninstallDelete `mapstructure:"uninstall_delete"`
	Folders         map[string]string    `mapstructure:"folders"`
	PostInstall     struct {
		CreateDirs []string `mapstructure:"create_dirs"`
	} `mapstructure:"post_install"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
}

// Load reads an installer script (YAML, TOML or JSON by extension),
// applies environment overrides and validates every section. Malformed
// entries fail here rather than when the install runs.
func Load(path string, opts ...LoadOption) (*Config, error) {
	lc := loadConfig{EnvPrefix: "SETUPKIT"}
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("yaml")
	}
	v.SetEnvPrefix(lc.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("setup.scope", string(ScopeUser))
	v.SetDefault("setup.group_name", "{appname}")
	v.SetDefault("setup.output_base_filename", "{appname}-{version}-setup")
	v.SetDefault("setup.uninstallable", true)
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read installer script: %w", err)
	}

	var raw rawConfig
	if err := v.Unmarshal(&raw); err != nil {
		return nil, fmt.Errorf("decode installer script: %w", err)
	}

	cfg, err := raw.build(filepath.Dir(path), lc)
	if err != nil {
		return nil, err
	}
	cfg.Path = v.ConfigFileUsed()
	return cfg, nil
}

func (raw *rawConfig) build(baseDir string, lc loadConfig) (*Config, error) {
	spec, err := raw.Setup.build(baseDir)
	if err != nil {
		return nil, err
	}
	if lc.SourceDir != "" {
		spec.SourceDir = lc.SourceDir
	}

	cfg := &Config{Spec: spec}

	level, err := zerolog.ParseLevel(strings.ToLower(raw.Log.Level))
	if err != nil {
		return nil, invalidf("log.level", "%v", err)
	}
	cfg.LogLevel = level

	if len(raw.Files) == 0 {
		return nil, invalidf("files", "at least one file entry is required")
	}
	for i, f := range raw.Files {
		entry, err := f.build(fmt.Sprintf("files[%d]", i))
		if err != nil {
			return nil, err
		}
		cfg.Files = append(cfg.Files, entry)
	}

	seen := map[string]bool{}
	for i, t := range raw.Tasks {
		field := fmt.Sprintf("tasks[%d].name", i)
		if !ValidTaskName(t.Name) {
			return nil, invalidf(field, "%q is not a valid task name", t.Name)
		}
		if seen[t.Name] {
			return nil, invalidf(field, "duplicate task %q", t.Name)
		}
		seen[t.Name] = true
		cfg.Tasks = append(cfg.Tasks, Task(t))
	}

	for i, ic := range raw.Icons {
		entry, err := ic.build(fmt.Sprintf("icons[%d]", i), seen, spec.Uninstallable)
		if err != nil {
			return nil, err
		}
		cfg.Icons = append(cfg.Icons, entry)
	}

	for i, r := range raw.Run {
		field := fmt.Sprintf("run[%d]", i)
		if strings.TrimSpace(r.Target) == "" {
			return nil, invalidf(field+".target", "required")
		}
		if _, err := CompileCondition(r.Tasks, seen); err != nil {
			return nil, invalidf(field+".tasks", "%v", err)
		}
		cfg.Run = append(cfg.Run, RunEntry(r))
	}

	for i, d := range raw.UninstallDelete {
		field := fmt.Sprintf("uninstall_delete[%d]", i)
		if strings.TrimSpace(d.Path) == "" {
			return nil, invalidf(field+".path", "required")
		}
		kind := DeleteKind(strings.ToLower(d.Kind))
		if kind == "" {
			kind = DeleteFiles
		}
		if !knownDeleteKinds[kind] {
			return nil, invalidf(field+".kind", "unknown kind %q", d.Kind)
		}
		cfg.UninstallDelete = append(cfg.UninstallDelete, UninstallDeleteEntry{
			Path:     d.Path,
			Kind:     kind,
			UserData: d.UserData,
		})
	}

	cfg.Folders = make(map[string]string, len(raw.Folders)+len(lc.Folders))
	for k, v := range raw.Folders {
		cfg.Folders[strings.ToLower(k)] = v
	}
	for k, v := range lc.Folders {
		cfg.Folders[strings.ToLower(k)] = v
	}
	cfg.CreateDirs = raw.PostInstall.CreateDirs

	return cfg, nil
}

func (s rawSetup) build(baseDir string) (InstallSpec, error) {
	id := strings.TrimRight(strings.TrimLeft(strings.TrimSpace(s.AppID), "{"), "}")
	parsed, err := uuid.Parse(id)
	if err != nil {
		return InstallSpec{}, invalidf("setup.app_id", "%q is not a UUID: %v", s.AppID, err)
	}
	if strings.TrimSpace(s.AppName) == "" {
		return InstallSpec{}, invalidf("setup.app_name", "required")
	}
	if strings.ContainsAny(s.AppName, `/\:*?"<>|`) {
		return InstallSpec{}, invalidf("setup.app_name", "%q contains path characters", s.AppName)
	}
	if _, err := goversion.NewVersion(s.Version); err != nil {
		return InstallSpec{}, invalidf("setup.version", "%v", err)
	}
	if strings.TrimSpace(s.DefaultDir) == "" {
		return InstallSpec{}, invalidf("setup.default_dir", "required")
	}
	scope := Scope(strings.ToLower(s.Scope))
	if scope != ScopeUser && scope != ScopeMachine {
		return InstallSpec{}, invalidf("setup.scope", "must be %q or %q, got %q", ScopeUser, ScopeMachine, s.Scope)
	}

	sourceDir := s.SourceDir
	switch {
	case sourceDir == "":
		sourceDir = baseDir
	case !filepath.IsAbs(sourceDir):
		sourceDir = filepath.Join(baseDir, sourceDir)
	}

	return InstallSpec{
		AppID:              strings.ToUpper(parsed.String()),
		AppName:            s.AppName,
		Version:            s.Version,
		Publisher:          s.Publisher,
		PublisherURL:       s.PublisherURL,
		SupportURL:         s.SupportURL,
		UpdatesURL:         s.UpdatesURL,
		DefaultDir:         s.DefaultDir,
		GroupName:          s.GroupName,
		Scope:              scope,
		OutputBaseFilename: s.OutputBaseFilename,
		SourceDir:          sourceDir,
		Uninstallable:      s.Uninstallable,
	}, nil
}

func (f rawFile) build(field string) (FileEntry, error) {
	if strings.TrimSpace(f.Source) == "" {
		return FileEntry{}, invalidf(field+".source", "required")
	}
	if strings.TrimSpace(f.DestDir) == "" {
		return FileEntry{}, invalidf(field+".dest_dir", "required")
	}
	entry := FileEntry{Source: f.Source, DestDir: f.DestDir, DestName: f.DestName}
	for _, raw := range f.Flags {
		for _, name := range strings.Fields(raw) {
			flag := FileFlag(strings.ToLower(name))
			if !knownFileFlags[flag] {
				return FileEntry{}, invalidf(field+".flags", "unknown flag %q", name)
			}
			entry.Flags = append(entry.Flags, flag)
		}
	}
	if entry.Has(FlagIgnoreVersion) && entry.Has(FlagOnlyIfDoesntExist) {
		return FileEntry{}, invalidf(field+".flags", "%s and %s are mutually exclusive", FlagIgnoreVersion, FlagOnlyIfDoesntExist)
	}
	if entry.DestName != "" && strings.ContainsAny(entry.Source, "*?[") {
		return FileEntry{}, invalidf(field+".dest_name", "cannot rename a wildcard source")
	}
	return entry, nil
}

func (ic rawIcon) build(field string, tasks map[string]bool, uninstallable bool) (ShortcutEntry, error) {
	name := strings.TrimSpace(ic.Name)
	if name == "" {
		return ShortcutEntry{}, invalidf(field+".name", "required")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\:*?"<>|`) {
		return ShortcutEntry{}, invalidf(field+".name", "%q contains path characters", ic.Name)
	}
	loc := Location(strings.ToLower(ic.Location))
	if loc == "" {
		loc = LocationStartMenu
	}
	if !knownLocations[loc] {
		return ShortcutEntry{}, invalidf(field+".location", "unknown location %q", ic.Location)
	}
	target := ic.Target
	if loc == LocationUninstaller {
		if !uninstallable {
			return ShortcutEntry{}, invalidf(field+".location", "uninstaller shortcut requires setup.uninstallable")
		}
		if target == "" {
			target = "{uninstallexe}"
		}
	}
	if strings.TrimSpace(target) == "" {
		return ShortcutEntry{}, invalidf(field+".target", "required")
	}
	if _, err := CompileCondition(ic.Tasks, tasks); err != nil {
		return ShortcutEntry{}, invalidf(field+".tasks", "%v", err)
	}
	return ShortcutEntry{
		Name:       ic.Name,
		Target:     target,
		Location:   loc,
		Tasks:      ic.Tasks,
		Parameters: ic.Parameters,
		WorkingDir: ic.WorkingDir,
		Comment:    ic.Comment,
	}, nil
}
