// Package pipfile models pipenv's Pipfile and Pipfile.lock and writes them in
// the layout pipenv itself produces.
//
// A [Pipfile] is encoded as TOML. A [Lock] is encoded as JSON with four-space
// indentation, keys in sorted order, ASCII-only string escapes and a trailing
// newline, so a lock written here and one written by pipenv for the same
// resolution compare equal byte for byte.
//
// The lock's _meta.hash.sha256 ties the lock to its Pipfile. [Pipfile.Hash]
// computes it the way pipenv does.
package pipfile

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
)

// DefaultIndexName and DefaultIndexURL describe the public index pipenv
// falls back to.
const (
	DefaultIndexName = "pypi"
	DefaultIndexURL  = "https://pypi.org/simple"
)

// Source is a package index, written as [[source]] in the Pipfile and in
// _meta.sources in the lock. Fields are declared in key order.
type Source struct {
	Name      string `toml:"name" json:"name"`
	URL       string `toml:"url" json:"url"`
	VerifySSL bool   `toml:"verify_ssl" json:"verify_ssl"`
}

// Requires is the [requires] table.
type Requires struct {
	PythonVersion string `toml:"python_version,omitempty" json:"python_version,omitempty"`
}

// Spec is the value of one entry under [packages] or [dev-packages]. A spec
// with only a version is written as a plain string; any other field makes
// it an inline table.
type Spec struct {
	Version  string
	Extras   []string
	Markers  string
	Index    string
	Path     string
	Editable bool
	Git      string
	Ref      string
	File     string
}

// IsSimple reports whether the spec is written as a bare version string.
func (s Spec) IsSimple() bool {
	return len(s.Extras) == 0 && s.Markers == "" && s.Index == "" &&
		s.Path == "" && !s.Editable && s.Git == "" && s.Ref == "" && s.File == ""
}

func (s Spec) version() string {
	if s.Version == "" {
		return "*"
	}
	return s.Version
}

// value returns the spec as pipenv sees it after parsing the Pipfile: a
// string, or a table with keys omitted when empty.
func (s Spec) value() any {
	if s.IsSimple() {
		return s.version()
	}
	m := map[string]any{}
	if (s.Git == "" && s.Path == "" && s.File == "") || s.Version != "" {
		m["version"] = s.version()
	}
	if len(s.Extras) > 0 {
		extras := make([]any, len(s.Extras))
		for i, e := range s.Extras {
			extras[i] = e
		}
		m["extras"] = extras
	}
	if s.Markers != "" {
		m["markers"] = s.Markers
	}
	if s.Index != "" {
		m["index"] = s.Index
	}
	if s.Path != "" {
		m["path"] = s.Path
	}
	if s.Editable {
		m["editable"] = true
	}
	if s.Git != "" {
		m["git"] = s.Git
	}
	if s.Ref != "" {
		m["ref"] = s.Ref
	}
	if s.File != "" {
		m["file"] = s.File
	}
	return m
}

// MarshalTOML writes the spec as a string or an inline table with sorted
// keys.
func (s Spec) MarshalTOML() ([]byte, error) {
	v := s.value()
	str, ok := v.(string)
	if ok {
		return []byte(quote(str)), nil
	}
	m := v.(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b bytes.Buffer
	b.WriteString("{")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" " + k + " = ")
		switch val := m[k].(type) {
		case string:
			b.WriteString(quote(val))
		case bool:
			b.WriteString(strconv.FormatBool(val))
		case []any:
			parts := make([]string, len(val))
			for j, e := range val {
				parts[j] = quote(e.(string))
			}
			b.WriteString("[" + strings.Join(parts, ", ") + "]")
		default:
			return nil, fmt.Errorf("unsupported value for %q: %T", k, val)
		}
	}
	b.WriteString(" }")
	return b.Bytes(), nil
}

// Pipfile is a pipenv manifest.
type Pipfile struct {
	// Header lines are written as comments above the first table.
	Header []string `toml:"-"`

	Sources     []Source        `toml:"source"`
	Packages    map[string]Spec `toml:"packages"`
	DevPackages map[string]Spec `toml:"dev-packages"`
	Requires    Requires        `toml:"requires"`
}

// New returns an empty Pipfile with non-nil package maps.
func New() *Pipfile {
	return &Pipfile{
		Packages:    map[string]Spec{},
		DevPackages: map[string]Spec{},
	}
}

// Encode writes the Pipfile as TOML.
func (p *Pipfile) Encode(w io.Writer) error {
	for _, line := range p.Header {
		if _, err := fmt.Fprintf(w, "# %s\n", line); err != nil {
			return err
		}
	}
	if len(p.Header) > 0 {
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode Pipfile: %w", err)
	}
	return nil
}

// Marshal returns the encoded Pipfile.
func (p *Pipfile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var pythonVersionRE = regexp.MustCompile(`(\d+)\.(\d+)`)

// PythonVersion derives pipenv's python_version ("3.12") from a
// requires-python specifier such as ">=3.12" or ">=3.9,<4". It returns ""
// when no major.minor pair is present.
func PythonVersion(requiresPython string) string {
	m := pythonVersionRE.FindStringSubmatch(requiresPython)
	if m == nil {
		return ""
	}
	return m[1] + "." + m[2]
}

// quote writes a TOML basic string.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f || r == utf8.RuneError:
			fmt.Fprintf(&b, `\u%04X`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
