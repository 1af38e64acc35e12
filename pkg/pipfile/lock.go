package pipfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"slices"
)

// SpecVersion is the pipfile-spec written to _meta.
const SpecVersion = 6

// Hash is _meta.hash.
type Hash struct {
	SHA256 string `json:"sha256"`
}

// Meta is the _meta block. Fields are declared in key order.
type Meta struct {
	Hash        Hash     `json:"hash"`
	PipfileSpec int      `json:"pipfile-spec"`
	Requires    Requires `json:"requires"`
	Sources     []Source `json:"sources"`
}

// LockEntry is one package under "default" or "develop". Fields are
// declared in key order. Hashes is always written, as [] for packages
// without artifacts.
type LockEntry struct {
	Editable bool     `json:"editable,omitempty"`
	Extras   []string `json:"extras,omitempty"`
	Hashes   []string `json:"hashes"`
	Index    string   `json:"index,omitempty"`
	Markers  string   `json:"markers,omitempty"`
	Path     string   `json:"path,omitempty"`
	Version  string   `json:"version"`
}

// Lock is a Pipfile.lock.
type Lock struct {
	Meta    Meta                 `json:"_meta"`
	Default map[string]LockEntry `json:"default"`
	Develop map[string]LockEntry `json:"develop"`
}

// NewLock returns a lock whose _meta is derived from p.
func NewLock(p *Pipfile) (*Lock, error) {
	sum, err := p.Hash()
	if err != nil {
		return nil, err
	}
	return &Lock{
		Meta: Meta{
			Hash:        Hash{SHA256: sum},
			PipfileSpec: SpecVersion,
			Requires:    p.Requires,
			Sources:     slices.Clone(p.Sources),
		},
		Default: map[string]LockEntry{},
		Develop: map[string]LockEntry{},
	}, nil
}

// Encode writes the lock as pipenv does: four-space indentation, sorted
// keys, non-ASCII escaped as \uXXXX and a trailing newline.
func (l *Lock) Encode(w io.Writer) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(l.normalized()); err != nil {
		return fmt.Errorf("encode Pipfile.lock: %w", err)
	}
	_, err := w.Write(asciiEscape(buf.Bytes()))
	return err
}

// Marshal returns the encoded lock.
func (l *Lock) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	if err := l.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// normalized replaces nil collections so they encode as {} and [].
func (l *Lock) normalized() *Lock {
	out := *l
	if out.Default == nil {
		out.Default = map[string]LockEntry{}
	}
	if out.Develop == nil {
		out.Develop = map[string]LockEntry{}
	}
	if out.Meta.Sources == nil {
		out.Meta.Sources = []Source{}
	}
	fix := func(m map[string]LockEntry) map[string]LockEntry {
		res := make(map[string]LockEntry, len(m))
		for k, e := range m {
			if e.Hashes == nil {
				e.Hashes = []string{}
			}
			res[k] = e
		}
		return res
	}
	out.Default = fix(out.Default)
	out.Develop = fix(out.Develop)
	return &out
}

// Hash computes the content hash pipenv stores in _meta.hash.sha256: the
// SHA-256 of the compact, key-sorted JSON of the Pipfile's sources,
// requirements and package tables.
func (p *Pipfile) Hash() (string, error) {
	sources := make([]any, len(p.Sources))
	for i, s := range p.Sources {
		sources[i] = map[string]any{"name": s.Name, "url": s.URL, "verify_ssl": s.VerifySSL}
	}
	requires := map[string]any{}
	if p.Requires.PythonVersion != "" {
		requires["python_version"] = p.Requires.PythonVersion
	}
	data := map[string]any{
		"_meta": map[string]any{
			"sources":  sources,
			"requires": requires,
		},
		"default": specValues(p.Packages),
		"develop": specValues(p.DevPackages),
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return "", fmt.Errorf("hash Pipfile: %w", err)
	}
	content := asciiEscape(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}

func specValues(m map[string]Spec) map[string]any {
	out := make(map[string]any, len(m))
	for name, s := range m {
		out[name] = s.value()
	}
	return out
}

// asciiEscape rewrites every non-ASCII rune of a JSON document as a \uXXXX
// escape, using surrogate pairs above the BMP. Non-ASCII bytes only occur
// inside JSON strings, so the document stays valid.
func asciiEscape(data []byte) []byte {
	ascii := true
	for _, c := range data {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return data
	}
	var b bytes.Buffer
	b.Grow(len(data))
	for _, r := range string(data) {
		switch {
		case r < 0x80:
			b.WriteByte(byte(r))
		case r > 0xFFFF:
			r -= 0x10000
			fmt.Fprintf(&b, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.Bytes()
}
