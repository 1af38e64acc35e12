// Package pipeline converts a uv project into its pipenv equivalent.
//
// This package implements the complete classify → emit pipeline shared by
// the convert and inspect commands. Inputs are decoded models, outputs are
// serialized bytes; the pipeline itself never touches the filesystem, the
// network or the environment.
//
// # Architecture
//
// The pipeline consists of two stages:
//
//  1. Classify: Partition the lock graph into "default", "develop" and
//     orphans by traversal from the pyproject.toml roots
//  2. Emit: Map every classified package to a Pipfile.lock entry, resolving
//     its index, and build the matching Pipfile
//
// # Usage
//
//	runner := pipeline.NewRunner(logger)
//	result, err := runner.Execute(ctx, pipeline.Input{Project: project, Lock: lock}, pipeline.Options{
//	    DevGroups:   []string{"dev", "lint"},
//	    Credentials: creds,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("Pipfile.lock", result.LockData, 0o644)
package pipeline

import (
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/uvburn/pkg/classify"
	"github.com/matzehuels/uvburn/pkg/errors"
	"github.com/matzehuels/uvburn/pkg/pipfile"
	"github.com/matzehuels/uvburn/pkg/pyproject"
	"github.com/matzehuels/uvburn/pkg/uvlock"
)

// =============================================================================
// Credentials
// =============================================================================

// Credential is a username/password pair for a secured index. Values are
// opaque; they are never written to the generated files.
type Credential struct {
	Username string
	Password string
}

// Credentials maps index identifiers (see [IndexID]) to their credentials.
type Credentials map[string]Credential

// For returns the credentials of the named index.
func (c Credentials) For(indexName string) (Credential, bool) {
	cred, ok := c[IndexID(indexName)]
	if !ok || (cred.Username == "" && cred.Password == "") {
		return Credential{}, false
	}
	return cred, true
}

// IndexID derives the identifier uv uses in credential environment variable
// names: the index name upper-cased, with every character outside [A-Z0-9]
// replaced by an underscore. "secured-repo" becomes "SECURED_REPO".
func IndexID(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		default:
			return '_'
		}
	}, name)
}

// UsernameVar returns the environment variable holding an index's username,
// e.g. UV_INDEX_SECURED_REPO_USERNAME.
func UsernameVar(indexName string) string { return "UV_INDEX_" + IndexID(indexName) + "_USERNAME" }

// PasswordVar is the password counterpart of [UsernameVar].
func PasswordVar(indexName string) string { return "UV_INDEX_" + IndexID(indexName) + "_PASSWORD" }

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for a conversion.
type Options struct {
	// DevGroups are the dependency groups emitted under "develop".
	// Defaults to pyproject.DefaultDevGroups.
	DevGroups []string

	// DefaultIndexName and DefaultIndexURL name the implicit index used for
	// registry packages whose URL matches no declared index. They default to
	// PyPI. A [[tool.uv.index]] marked default = true takes precedence.
	DefaultIndexName string
	DefaultIndexURL  string

	// NoDefaultIndex disables the implicit index: a registry package whose
	// URL matches no declared index fails with UNRESOLVED_INDEX.
	NoDefaultIndex bool

	// NoVerifySSL writes verify_ssl = false for every source.
	NoVerifySSL bool

	// Credentials decide which sources get credential placeholders.
	Credentials Credentials

	// Runtime options
	Logger *log.Logger

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// ValidateAndSetDefaults checks the options and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.DevGroups) == 0 {
		o.DevGroups = pyproject.DefaultDevGroups
	}
	if o.DefaultIndexName == "" {
		o.DefaultIndexName = pipfile.DefaultIndexName
	}
	if o.DefaultIndexURL == "" {
		o.DefaultIndexURL = pipfile.DefaultIndexURL
	}
	if err := errors.ValidateURL(o.DefaultIndexURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "default index %q", o.DefaultIndexName)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// =============================================================================
// Input and Result
// =============================================================================

// Input is the decoded uv project.
type Input struct {
	Project *pyproject.Project
	Lock    *uvlock.Lock
}

// Result contains the outputs of a conversion.
type Result struct {
	// Pipfile and Lock are the generated models.
	Pipfile *pipfile.Pipfile
	Lock    *pipfile.Lock

	// PipfileData and LockData are the serialized files.
	PipfileData []byte
	LockData    []byte

	// Classification is the group partition the lock was built from.
	Classification *classify.Result

	// Orphans lists the packages omitted because no root reaches them.
	Orphans []*errors.OrphanWarning

	// Stats contains timing and size information.
	Stats Stats
}

// Stats contains pipeline execution statistics.
type Stats struct {
	PackageCount int
	EdgeCount    int
	DefaultCount int
	DevelopCount int
	OrphanCount  int
	CycleCount   int
	ClassifyTime time.Duration
	EmitTime     time.Duration
}
