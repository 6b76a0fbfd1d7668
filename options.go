package setupkit

// loadConfig holds the settings for Load.
type loadConfig struct {
	EnvPrefix string            // Prefix for environment overrides (default: "SETUPKIT")
	SourceDir string            // Overrides setup.source_dir
	Folders   map[string]string // Extra folder token overrides, applied after the file's
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// WithEnvPrefix sets the prefix for environment variable overrides.
// With the default prefix, SETUPKIT_SETUP_VERSION overrides setup.version.
func WithEnvPrefix(prefix string) LoadOption {
	return func(c *loadConfig) {
		c.EnvPrefix = prefix
	}
}

// WithSourceDir overrides the directory relative file sources are taken from.
func WithSourceDir(dir string) LoadOption {
	return func(c *loadConfig) {
		c.SourceDir = dir
	}
}

// WithFolder overrides a single folder token, e.g. WithFolder("autodesktop", dir).
// Useful for installing into a simulated environment.
func WithFolder(token, path string) LoadOption {
	return func(c *loadConfig) {
		if c.Folders == nil {
			c.Folders = make(map[string]string)
		}
		c.Folders[token] = path
	}
}
