// Package requirement splits PEP 508 dependency specifiers into their parts.
//
// Only the structure needed for graph lookups and Pipfile emission is
// extracted. Version specifiers and markers are kept as opaque strings; they
// are never evaluated.
//
//	r, err := requirement.Parse("requests[socks]>=2.31; python_version < '3.13'")
//	// r.Name == "requests", r.Extras == ["socks"],
//	// r.Specifier == ">=2.31", r.Marker == "python_version < '3.13'"
package requirement

import (
	"regexp"
	"strings"

	"github.com/matzehuels/uvburn/pkg/errors"
)

var (
	nameRE      = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)`)
	normalizeRE = regexp.MustCompile(`[-_.]+`)
	urlMarkerRE = regexp.MustCompile(`\s;`) // marker separator after a direct reference
)

// Requirement is a parsed dependency specifier.
type Requirement struct {
	Name      string   // Name as written
	Extras    []string // Requested extras, normalized, in declaration order
	Specifier string   // Version constraint without spaces (e.g. ">=2.31,<3"), empty if unconstrained
	URL       string   // Direct reference after "@", if any
	Marker    string   // Environment marker after ";", if any
}

// Key returns the normalized name used as the graph lookup key.
func (r Requirement) Key() string { return Normalize(r.Name) }

// String re-assembles the requirement in canonical PEP 508 form.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Name)
	if len(r.Extras) > 0 {
		b.WriteString("[" + strings.Join(r.Extras, ",") + "]")
	}
	switch {
	case r.URL != "":
		b.WriteString(" @ " + r.URL)
	case r.Specifier != "":
		b.WriteString(r.Specifier)
	}
	if r.Marker != "" {
		if r.URL != "" {
			b.WriteString(" ")
		}
		b.WriteString("; " + r.Marker)
	}
	return b.String()
}

// Parse splits a PEP 508 specifier. It fails with MALFORMED_MANIFEST when no
// bare package name can be extracted.
//
// The marker starts at the first ";", except after a direct reference, where
// it must be preceded by whitespace: "pkg @ https://host/a;b.whl" has no
// marker.
func Parse(spec string) (Requirement, error) {
	s := strings.TrimSpace(spec)

	var r Requirement
	m := nameRE.FindStringSubmatch(s)
	if m == nil {
		return Requirement{}, errors.New(errors.ErrCodeMalformedManifest, "cannot extract package name from specifier %q", spec)
	}
	r.Name = m[1]
	rest := strings.TrimSpace(s[len(m[1]):])

	if strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return Requirement{}, errors.New(errors.ErrCodeMalformedManifest, "unterminated extras in specifier %q", spec)
		}
		for _, e := range strings.Split(rest[1:end], ",") {
			if e = strings.TrimSpace(e); e != "" {
				r.Extras = append(r.Extras, Normalize(e))
			}
		}
		rest = strings.TrimSpace(rest[end+1:])
	}

	if strings.HasPrefix(rest, "@") {
		if loc := urlMarkerRE.FindStringIndex(rest); loc != nil {
			r.Marker = strings.TrimSpace(rest[loc[1]:])
			rest = rest[:loc[0]]
		}
		r.URL = strings.TrimSpace(rest[1:])
		if r.URL == "" {
			return Requirement{}, errors.New(errors.ErrCodeMalformedManifest, "empty direct reference in specifier %q", spec)
		}
		return r, nil
	}

	if i := strings.Index(rest, ";"); i >= 0 {
		r.Marker = strings.TrimSpace(rest[i+1:])
		rest = strings.TrimSpace(rest[:i])
	}
	rest = strings.TrimSuffix(strings.TrimPrefix(rest, "("), ")")
	r.Specifier = strings.Join(strings.Fields(rest), "")
	if r.Specifier != "" && !strings.ContainsAny(r.Specifier[:1], "<>=!~") {
		return Requirement{}, errors.New(errors.ErrCodeMalformedManifest, "unexpected %q after package name in specifier %q", r.Specifier, spec)
	}
	return r, nil
}

// Normalize converts a package name to its canonical form following PEP 503:
// lowercase, with runs of "-", "_" and "." collapsed to a single "-".
func Normalize(name string) string {
	return normalizeRE.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}
