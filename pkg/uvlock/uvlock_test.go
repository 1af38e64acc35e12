package uvlock

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/uvburn/pkg/errors"
)

const sampleLock = `version = 1
revision = 2
requires-python = ">=3.12"

[manifest]
members = ["acme-service", "acme-cli"]

[[package]]
name = "acme-cli"
version = "0.1.0"
source = { editable = "packages/cli" }

[[package]]
name = "acme-service"
version = "0.3.0"
source = { virtual = "." }
dependencies = [
    { name = "acme-cli", editable = "packages/cli" },
    { name = "requests", extra = ["socks"] },
]

[package.dev-dependencies]
dev = [{ name = "pytest" }]

[package.metadata]
requires-dist = [{ name = "requests", extras = ["socks"], specifier = ">=2.32" }]

[package.metadata.requires-dev]
dev = [{ name = "pytest", specifier = ">=8" }]

[[package]]
name = "idna"
version = "3.7"
source = { registry = "https://pypi.org/simple" }
sdist = { url = "https://files.example/idna-3.7.tar.gz", hash = "sha256:0000", size = 189575, upload-time = "2024-04-11T03:34:43.276Z" }
wheels = [
    { url = "https://files.example/idna-3.7-py3-none-any.whl", hash = "sha256:aaaa", size = 66836, upload-time = "2024-04-11T03:34:41.447Z" },
]

[[package]]
name = "pysocks"
version = "1.7.1"
source = { registry = "https://pypi.org/simple" }
wheels = [{ url = "https://files.example/PySocks-1.7.1-py3-none-any.whl", hash = "sha256:bbbb" }]

[[package]]
name = "pytest"
version = "8.3.2"
source = { registry = "https://pypi.org/simple" }
wheels = [{ url = "https://files.example/pytest-8.3.2-py3-none-any.whl", hash = "sha256:cccc" }]

[[package]]
name = "requests"
version = "2.32.3"
source = { registry = "https://pypi.org/simple" }
dependencies = [{ name = "idna", marker = "python_full_version >= '3.12'" }]
sdist = { url = "https://files.example/requests-2.32.3.tar.gz", hash = "sha256:dddd" }
wheels = [
    { url = "https://files.example/requests-2.32.3-py3-none-any.whl", hash = "sha256:eeee" },
    { url = "https://files.example/requests-2.32.3-py2-none-any.whl", hash = "sha256:ffff" },
]

[package.optional-dependencies]
socks = [{ name = "pysocks" }]
`

func TestParse(t *testing.T) {
	l, err := Parse([]byte(sampleLock))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if l.Version != 1 || l.Revision != 2 {
		t.Errorf("Version/Revision = %d/%d, want 1/2", l.Version, l.Revision)
	}
	if l.RequiresPython != ">=3.12" {
		t.Errorf("RequiresPython = %q", l.RequiresPython)
	}

	var names []string
	for _, p := range l.Packages {
		names = append(names, p.Name)
	}
	want := []string{"acme-cli", "acme-service", "idna", "pysocks", "pytest", "requests"}
	if !slices.Equal(names, want) {
		t.Errorf("package order = %v, want %v", names, want)
	}

	cli, ok := l.Lookup("Acme_CLI")
	if !ok {
		t.Fatal("Lookup(Acme_CLI) not found")
	}
	if cli.Kind != KindWorkspace || !cli.Editable || cli.Path != "packages/cli" {
		t.Errorf("acme-cli = kind %v editable %v path %q", cli.Kind, cli.Editable, cli.Path)
	}
	if h := cli.Hashes(); h == nil || len(h) != 0 {
		t.Errorf("workspace Hashes() = %#v, want empty non-nil", h)
	}

	root, _ := l.Lookup("acme-service")
	if root.Kind != KindWorkspace || root.Editable {
		t.Errorf("virtual root: kind %v editable %v", root.Kind, root.Editable)
	}
	if got := root.DevDependencies["dev"]; len(got) != 1 || got[0].Name != "pytest" {
		t.Errorf("dev-dependencies = %+v", got)
	}
	if got := root.Metadata.RequiresDev["dev"]; len(got) != 1 || got[0].Specifier != ">=8" {
		t.Errorf("requires-dev = %+v", got)
	}

	if !l.IsMember("acme_cli") || l.IsMember("requests") {
		t.Error("IsMember mismatch")
	}
	if _, ok := l.Lookup("flask"); ok {
		t.Error("Lookup(flask) found a package")
	}
}

func TestPackage_Hashes(t *testing.T) {
	l, err := Parse([]byte(sampleLock))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	req, _ := l.Lookup("requests")
	want := []string{"sha256:eeee", "sha256:ffff", "sha256:dddd"}
	if got := req.Hashes(); !slices.Equal(got, want) {
		t.Errorf("Hashes() = %v, want %v", got, want)
	}
	if req.Kind != KindRegistry || req.Registry != "https://pypi.org/simple" {
		t.Errorf("requests source = %v %q", req.Kind, req.Registry)
	}
}

func TestArtifact_Uploaded(t *testing.T) {
	a := Artifact{Hash: "sha256:abc", UploadTime: "2024-04-11T03:34:43.276Z"}
	ts, err := a.Uploaded()
	if err != nil {
		t.Fatalf("Uploaded failed: %v", err)
	}
	if ts.Year() != 2024 || ts.Month() != time.April {
		t.Errorf("Uploaded() = %v", ts)
	}
	if a.Algorithm() != "sha256" {
		t.Errorf("Algorithm() = %q", a.Algorithm())
	}

	ts, err = Artifact{}.Uploaded()
	if err != nil || !ts.IsZero() {
		t.Errorf("empty Uploaded() = %v, %v", ts, err)
	}
}

func TestParse_Malformed(t *testing.T) {
	const header = "version = 1\nrevision = 2\n"
	tests := []struct {
		name    string
		content string
		mention string
	}{
		{"not toml", "version = ", ""},
		{"wrong version", "version = 7\n", "version"},
		{
			"duplicate package",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { registry = \"https://pypi.org/simple\" }\n" +
				"[[package]]\nname = \"A\"\nversion = \"2\"\nsource = { registry = \"https://pypi.org/simple\" }\n",
			"\"A\"",
		},
		{
			"dangling edge",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { registry = \"https://pypi.org/simple\" }\ndependencies = [{ name = \"ghost\" }]\n",
			"ghost",
		},
		{
			"dangling optional edge",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { registry = \"https://pypi.org/simple\" }\n[package.optional-dependencies]\nx = [{ name = \"ghost\" }]\n",
			"optional-dependencies.x",
		},
		{
			"dangling dev edge",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { virtual = \".\" }\n[package.dev-dependencies]\ndev = [{ name = \"ghost\" }]\n",
			"dev-dependencies.dev",
		},
		{
			"git source",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { git = \"https://github.com/a/a\" }\n",
			"unsupported",
		},
		{
			"no source",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\n",
			"exactly one source",
		},
		{
			"bad hash",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { registry = \"https://pypi.org/simple\" }\nwheels = [{ url = \"https://x/a.whl\", hash = \"deadbeef\" }]\n",
			"\"a\"",
		},
		{
			"empty hash",
			header + "[[package]]\nname = \"a\"\nversion = \"1\"\nsource = { registry = \"https://pypi.org/simple\" }\nsdist = { url = \"https://x/a.tar.gz\" }\n",
			"\"a\"",
		},
		{
			"missing version",
			header + "[[package]]\nname = \"a\"\nsource = { registry = \"https://pypi.org/simple\" }\n",
			"no version",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			if !errors.Is(err, errors.ErrCodeMalformedLockGraph) {
				t.Fatalf("Parse() error = %v, want MALFORMED_LOCK_GRAPH", err)
			}
			if tt.mention != "" && !strings.Contains(err.Error(), tt.mention) {
				t.Errorf("error %q does not mention %q", err, tt.mention)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uv.lock")
	if err := os.WriteFile(path, []byte(sampleLock), 0644); err != nil {
		t.Fatal(err)
	}

	l, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(l.Packages) != 6 {
		t.Errorf("len(Packages) = %d, want 6", len(l.Packages))
	}

	if _, err := Load(filepath.Join(dir, "nope.lock")); !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestKind_String(t *testing.T) {
	if KindRegistry.String() != "registry" || KindWorkspace.String() != "workspace" {
		t.Errorf("Kind strings = %q, %q", KindRegistry, KindWorkspace)
	}
}
