package pipeline

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvburn/pkg/classify"
	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/observability"
	"github.com/matzehuels/uvburn/pkg/pipfile"
)

// Runner executes conversions.
//
// The Runner is stateless except for the logger - it doesn't store results.
// Multiple goroutines can safely use the same Runner with different inputs.
type Runner struct {
	Logger *log.Logger
}

// NewRunner creates a runner. If logger is nil, log.Default() is used.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Logger: logger}
}

// Execute runs the complete classify → emit pipeline.
//
// Fatal conditions (malformed manifest, dangling lock edges, unresolvable
// indices) abort the conversion; no partial output is returned. Orphans are
// logged as warnings and reported in Result.Orphans.
func (r *Runner) Execute(ctx context.Context, in Input, opts Options) (*Result, error) {
	if in.Project == nil || in.Lock == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "both pyproject.toml and uv.lock are required")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{}

	// Stage 1: Classify
	classifyStart := time.Now()
	cls, err := r.Classify(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	result.Classification = cls
	result.Stats.ClassifyTime = time.Since(classifyStart)
	result.Stats.PackageCount = cls.Graph.NodeCount()
	result.Stats.EdgeCount = cls.Graph.EdgeCount()
	result.Stats.DefaultCount = len(cls.Default)
	result.Stats.DevelopCount = len(cls.Develop)
	result.Stats.OrphanCount = len(cls.Orphans)
	result.Stats.CycleCount = len(cls.Cycles)

	for _, p := range cls.Orphans {
		w := &errors.OrphanWarning{Package: p.Name, Version: p.Version}
		result.Orphans = append(result.Orphans, w)
		opts.Logger.Warn(w.Error(), "code", w.Code())
		observability.Graph().OnOrphan(ctx, p.Name, p.Version)
	}
	for _, e := range cls.Cycles {
		opts.Logger.Debug("dependency cycle", "from", e.From, "to", e.To)
		observability.Graph().OnCycle(ctx, e.From, e.To)
	}

	opts.Logger.Info("classified packages",
		"default", result.Stats.DefaultCount,
		"develop", result.Stats.DevelopCount,
		"orphans", result.Stats.OrphanCount,
		"duration", result.Stats.ClassifyTime)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Stage 2: Emit
	emitStart := time.Now()
	name := in.Project.Metadata.Name
	observability.Pipeline().OnEmitStart(ctx, name)
	err = r.emit(in, cls, opts, result)
	result.Stats.EmitTime = time.Since(emitStart)
	observability.Pipeline().OnEmitComplete(ctx, name, len(result.LockData), result.Stats.EmitTime, err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Info("emitted pipenv files",
		"sources", len(result.Pipfile.Sources),
		"lock_bytes", len(result.LockData),
		"duration", result.Stats.EmitTime)

	return result, nil
}

// Classify runs only the classification stage.
func (r *Runner) Classify(ctx context.Context, in Input, opts Options) (*classify.Result, error) {
	if in.Project == nil || in.Lock == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "both pyproject.toml and uv.lock are required")
	}
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	observability.Pipeline().OnClassifyStart(ctx, len(in.Lock.Packages))
	start := time.Now()
	cls, err := r.classify(in, opts)
	counts := observability.Counts{}
	if cls != nil {
		counts = observability.Counts{Default: len(cls.Default), Develop: len(cls.Develop), Orphans: len(cls.Orphans)}
	}
	observability.Pipeline().OnClassifyComplete(ctx, counts, time.Since(start), err)
	return cls, err
}

func (r *Runner) classify(in Input, opts Options) (*classify.Result, error) {
	runtime, err := in.Project.RootSpecs()
	if err != nil {
		return nil, err
	}

	declared := in.Project.GroupNames()
	var groups []string
	for _, g := range opts.DevGroups {
		if !slices.Contains(declared, g) {
			opts.Logger.Warn("dependency group not declared in pyproject.toml", "group", g)
			continue
		}
		groups = append(groups, g)
	}
	dev, err := in.Project.GroupSpecs(groups...)
	if err != nil {
		return nil, err
	}
	opts.Logger.Debug("traversal roots", "runtime", len(runtime), "dev", len(dev), "groups", groups)

	return classify.Classify(in.Lock, classify.Roots{
		Project: in.Project.Metadata.Name,
		Runtime: runtime,
		Dev:     dev,
	})
}

func (r *Runner) emit(in Input, cls *classify.Result, opts Options, result *Result) error {
	e := newEmitter(in, opts)

	pf, err := e.pipfile()
	if err != nil {
		return err
	}
	lock, err := pipfile.NewLock(pf)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "hash Pipfile")
	}
	if err := e.fill(lock.Default, cls.Default); err != nil {
		return err
	}
	if err := e.fill(lock.Develop, cls.Develop); err != nil {
		return err
	}

	pfData, err := pf.Marshal()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "serialize Pipfile")
	}
	lockData, err := lock.Marshal()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "serialize Pipfile.lock")
	}

	result.Pipfile = pf
	result.Lock = lock
	result.PipfileData = pfData
	result.LockData = lockData
	return nil
}

func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
