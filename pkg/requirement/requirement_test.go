package requirement

import (
	"slices"
	"testing"

	"github.com/matzehuels/uvburn/pkg/errors"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  Requirement
	}{
		{"requests", Requirement{Name: "requests"}},
		{"requests>=2.31", Requirement{Name: "requests", Specifier: ">=2.31"}},
		{"requests >= 2.31, < 3", Requirement{Name: "requests", Specifier: ">=2.31,<3"}},
		{"Django (>=4.0)", Requirement{Name: "Django", Specifier: ">=4.0"}},
		{"requests[socks, Security]~=2.0", Requirement{Name: "requests", Extras: []string{"socks", "security"}, Specifier: "~=2.0"}},
		{
			"pywin32>=306; sys_platform == 'win32'",
			Requirement{Name: "pywin32", Specifier: ">=306", Marker: "sys_platform == 'win32'"},
		},
		{
			"mylib @ https://example.com/mylib-1.0.tar.gz",
			Requirement{Name: "mylib", URL: "https://example.com/mylib-1.0.tar.gz"},
		},
		{
			"pkg @ https://x.example/a;b=c/pkg-1.0-py3-none-any.whl ; python_version >= '3.12'",
			Requirement{Name: "pkg", URL: "https://x.example/a;b=c/pkg-1.0-py3-none-any.whl", Marker: "python_version >= '3.12'"},
		},
		{
			"pkg[cli] @ https://x.example/a;b.whl",
			Requirement{Name: "pkg", Extras: []string{"cli"}, URL: "https://x.example/a;b.whl"},
		},
		{
			"requests[socks];python_version<'3.13'",
			Requirement{Name: "requests", Extras: []string{"socks"}, Marker: "python_version<'3.13'"},
		},
		{"zope.interface", Requirement{Name: "zope.interface"}},
		{"  typing_extensions  ", Requirement{Name: "typing_extensions"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if got.Name != tt.want.Name {
				t.Errorf("Name = %q, want %q", got.Name, tt.want.Name)
			}
			if !slices.Equal(got.Extras, tt.want.Extras) {
				t.Errorf("Extras = %v, want %v", got.Extras, tt.want.Extras)
			}
			if got.Specifier != tt.want.Specifier {
				t.Errorf("Specifier = %q, want %q", got.Specifier, tt.want.Specifier)
			}
			if got.URL != tt.want.URL {
				t.Errorf("URL = %q, want %q", got.URL, tt.want.URL)
			}
			if got.Marker != tt.want.Marker {
				t.Errorf("Marker = %q, want %q", got.Marker, tt.want.Marker)
			}
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []string{
		"",
		">=1.0",
		"-requests",
		"requests[socks",
		"requests @ ",
		"requests 2.0",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := Parse(input)
			if err == nil {
				t.Fatalf("Parse(%q) succeeded, want error", input)
			}
			if !errors.Is(err, errors.ErrCodeMalformedManifest) {
				t.Errorf("Parse(%q) error code = %v, want %v", input, errors.GetCode(err), errors.ErrCodeMalformedManifest)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"requests", "requests"},
		{"Flask", "flask"},
		{"typing_extensions", "typing-extensions"},
		{"zope.interface", "zope-interface"},
		{"Foo__Bar-.baz", "foo-bar-baz"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRequirement_String(t *testing.T) {
	tests := []string{
		"requests",
		"requests[socks]>=2.31",
		"pywin32>=306; sys_platform == 'win32'",
		"mylib @ https://example.com/mylib-1.0.tar.gz",
		"pkg @ https://x.example/a;b.whl ; os_name == 'nt'",
	}

	for _, input := range tests {
		r, err := Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", input, err)
		}
		if got := r.String(); got != input {
			t.Errorf("String() = %q, want %q", got, input)
		}
	}
}
