// Package config loads uvburn's optional settings file and the index
// credentials uv reads from the environment.
//
// Settings are resolved in increasing precedence: built-in defaults, a
// uvburn.toml file, then UVBURN_* environment variables. Command-line flags
// are applied on top by the caller.
//
//	# uvburn.toml
//	dev_groups = ["dev", "lint"]
//	no_default_index = false
//	verify_ssl = true
//
//	[default_index]
//	name = "pypi"
//	url = "https://pypi.org/simple"
package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/pipeline"
	"github.com/matzehuels/uvburn/pkg/pipfile"
	"github.com/matzehuels/uvburn/pkg/pyproject"
)

const (
	// AppName is the application name.
	AppName = "uvburn"
	// FileName is the name of the config file (without extension).
	FileName = "uvburn"
	// FileExt is the config file extension.
	FileExt = "toml"
	// EnvPrefix prefixes every environment override, e.g.
	// UVBURN_DEFAULT_INDEX_URL.
	EnvPrefix = "UVBURN"
)

// Index names the implicit default index.
type Index struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// Config holds the settings that shape a conversion.
type Config struct {
	DefaultIndex   Index    `mapstructure:"default_index"`
	DevGroups      []string `mapstructure:"dev_groups"`
	NoDefaultIndex bool     `mapstructure:"no_default_index"`
	VerifySSL      bool     `mapstructure:"verify_ssl"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DefaultIndex: Index{Name: pipfile.DefaultIndexName, URL: pipfile.DefaultIndexURL},
		DevGroups:    slices.Clone(pyproject.DefaultDevGroups),
		VerifySSL:    true,
	}
}

// Apply copies the settings into conversion options.
func (c *Config) Apply(opts *pipeline.Options) {
	opts.DefaultIndexName = c.DefaultIndex.Name
	opts.DefaultIndexURL = c.DefaultIndex.URL
	opts.DevGroups = c.DevGroups
	opts.NoDefaultIndex = c.NoDefaultIndex
	opts.NoVerifySSL = !c.VerifySSL
}

// LoadOptions control where Load looks for the config file.
type LoadOptions struct {
	// ConfigFilePath is an explicit file; it must exist when set.
	ConfigFilePath string
	// ProjectDir is searched for uvburn.toml before the user config
	// directory.
	ProjectDir string
	// ConfigDirPath overrides the user config directory.
	ConfigDirPath string
}

// Load resolves the configuration and returns it together with the path of
// the file that was read, or "" when only defaults and the environment
// applied.
func Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	default:
	}

	v := viper.New()
	v.SetConfigType(FileExt)

	defaults := Default()
	v.SetDefault("default_index.name", defaults.DefaultIndex.Name)
	v.SetDefault("default_index.url", defaults.DefaultIndex.URL)
	v.SetDefault("dev_groups", defaults.DevGroups)
	v.SetDefault("no_default_index", defaults.NoDefaultIndex)
	v.SetDefault("verify_ssl", defaults.VerifySSL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, err := findFile(opts)
	if err != nil {
		return nil, "", err
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if err := cfg.validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

func (c *Config) validate() error {
	if c.DefaultIndex.Name == "" {
		return errors.New(errors.ErrCodeInvalidInput, "default_index.name cannot be empty")
	}
	if err := errors.ValidateURL(c.DefaultIndex.URL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "default_index.url")
	}
	return nil
}

func findFile(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", errors.New(errors.ErrCodeFileNotFound, "config file not found: %s", opts.ConfigFilePath)
		}
		return opts.ConfigFilePath, nil
	}

	name := FileName + "." + FileExt
	if opts.ProjectDir != "" {
		if p := filepath.Join(opts.ProjectDir, name); fileExists(p) {
			return p, nil
		}
	}
	dir := opts.ConfigDirPath
	if dir == "" {
		var err error
		if dir, err = ConfigDir(); err != nil {
			return "", nil
		}
	}
	if p := filepath.Join(dir, name); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// ConfigDir returns the user config directory, $XDG_CONFIG_HOME/uvburn or
// ~/.config/uvburn.
//
//nolint:revive // ConfigDir reads better than Dir at call sites
func ConfigDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppName), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Credentials reads UV_INDEX_<ID>_USERNAME and UV_INDEX_<ID>_PASSWORD for
// each named index. Indices without either variable are left out. An empty
// index name is an INVALID_INPUT error.
func Credentials(indexNames ...string) (pipeline.Credentials, error) {
	v := viper.New()
	out := pipeline.Credentials{}
	for _, name := range indexNames {
		if strings.TrimSpace(name) == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "index name cannot be empty")
		}
		id := pipeline.IndexID(name)
		userKey := strings.ToLower(id) + ".username"
		passKey := strings.ToLower(id) + ".password"
		if err := v.BindEnv(userKey, pipeline.UsernameVar(name)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bind %s", pipeline.UsernameVar(name))
		}
		if err := v.BindEnv(passKey, pipeline.PasswordVar(name)); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "bind %s", pipeline.PasswordVar(name))
		}

		cred := pipeline.Credential{Username: v.GetString(userKey), Password: v.GetString(passKey)}
		if cred.Username != "" || cred.Password != "" {
			out[id] = cred
		}
	}
	return out, nil
}

// IndexNames lists the indices credentials may apply to: the configured
// default index followed by the project's declared indices.
func IndexNames(cfg *Config, project *pyproject.Project) []string {
	names := []string{cfg.DefaultIndex.Name}
	for _, idx := range project.Tool.UV.Indices {
		names = append(names, idx.Name)
	}
	return names
}
