package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/uvburn/internal/config"
	"github.com/matzehuels/uvburn/pkg/pipeline"
	"github.com/matzehuels/uvburn/pkg/pyproject"
	"github.com/matzehuels/uvburn/pkg/uvlock"
)

// inputOpts holds the flags shared by every command that reads a uv
// project: where the inputs live and how the conversion is configured.
type inputOpts struct {
	project   string // project directory
	pyproject string // pyproject.toml path (default: <project>/pyproject.toml)
	lock      string // uv.lock path (default: <project>/uv.lock)
	config    string // explicit uvburn.toml

	devGroups      []string
	indexName      string
	indexURL       string
	noDefaultIndex bool
	noVerifySSL    bool
}

// register adds the shared flags to cmd.
func (o *inputOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.project, "project", "p", ".", "uv project directory")
	cmd.Flags().StringVar(&o.pyproject, "pyproject", "", "pyproject.toml path (default: <project>/pyproject.toml)")
	cmd.Flags().StringVar(&o.lock, "lock", "", "uv.lock path (default: <project>/uv.lock)")
	cmd.Flags().StringVar(&o.config, "config", "", "uvburn.toml path (default: <project>/uvburn.toml, then the user config dir)")
	cmd.Flags().StringSliceVarP(&o.devGroups, "group", "g", nil, "dependency group(s) emitted as develop (default: dev)")
	cmd.Flags().StringVar(&o.indexName, "default-index-name", "", "name of the implicit default index (default: pypi)")
	cmd.Flags().StringVar(&o.indexURL, "default-index-url", "", "URL of the implicit default index (default: https://pypi.org/simple)")
	cmd.Flags().BoolVar(&o.noDefaultIndex, "no-default-index", false, "fail on packages whose registry matches no declared index")
	cmd.Flags().BoolVar(&o.noVerifySSL, "no-verify-ssl", false, "write verify_ssl = false for every source")
}

func (o *inputOpts) pyprojectPath() string {
	if o.pyproject != "" {
		return o.pyproject
	}
	return filepath.Join(o.project, pyprojectFile)
}

func (o *inputOpts) lockPath() string {
	if o.lock != "" {
		return o.lock
	}
	return filepath.Join(o.project, uvLockFile)
}

// load decodes both input files.
func (o *inputOpts) load(ctx context.Context) (pipeline.Input, error) {
	logger := loggerFromContext(ctx)

	prog := newProgress(logger)
	project, err := pyproject.Load(o.pyprojectPath())
	if err != nil {
		return pipeline.Input{}, err
	}
	prog.done("Loaded " + o.pyprojectPath())

	prog = newProgress(logger)
	lock, err := uvlock.Load(o.lockPath())
	if err != nil {
		return pipeline.Input{}, err
	}
	prog.done("Loaded " + o.lockPath())
	logger.Debug("lock file", "version", lock.Version, "revision", lock.Revision, "packages", len(lock.Packages))

	return pipeline.Input{Project: project, Lock: lock}, nil
}

// options resolves the conversion options: config file and environment
// first, then any flag the user set explicitly. Credentials are read for
// the default index and every declared index.
func (o *inputOpts) options(ctx context.Context, cmd *cobra.Command, in pipeline.Input) (pipeline.Options, error) {
	logger := loggerFromContext(ctx)

	cfg, path, err := config.Load(ctx, config.LoadOptions{
		ConfigFilePath: o.config,
		ProjectDir:     o.project,
	})
	if err != nil {
		return pipeline.Options{}, err
	}
	if path != "" {
		logger.Debug("using config file", "path", path)
	}

	flags := cmd.Flags()
	if flags.Changed("group") {
		cfg.DevGroups = o.devGroups
	}
	if flags.Changed("default-index-name") {
		cfg.DefaultIndex.Name = o.indexName
	}
	if flags.Changed("default-index-url") {
		cfg.DefaultIndex.URL = o.indexURL
	}
	if flags.Changed("no-default-index") {
		cfg.NoDefaultIndex = o.noDefaultIndex
	}
	if flags.Changed("no-verify-ssl") {
		cfg.VerifySSL = !o.noVerifySSL
	}

	var opts pipeline.Options
	cfg.Apply(&opts)
	creds, err := config.Credentials(config.IndexNames(cfg, in.Project)...)
	if err != nil {
		return pipeline.Options{}, err
	}
	opts.Credentials = creds
	opts.Logger = logger
	for id := range opts.Credentials {
		logger.Debug("found index credentials", "index", id)
	}
	return opts, nil
}
