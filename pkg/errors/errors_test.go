package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeMalformedManifest, "bad specifier: %s", "==1.0")

	if err.Code != ErrCodeMalformedManifest {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMalformedManifest)
	}

	if err.Message != "bad specifier: ==1.0" {
		t.Errorf("Message = %v, want %v", err.Message, "bad specifier: ==1.0")
	}

	expected := "MALFORMED_MANIFEST: bad specifier: ==1.0"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("toml: line 3: expected '='")
	err := Wrap(ErrCodeMalformedLockGraph, cause, "decode uv.lock")

	if err.Code != ErrCodeMalformedLockGraph {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeMalformedLockGraph)
	}

	if err.Cause != cause {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     Code
		expected bool
	}{
		{
			name:     "matching code",
			err:      New(ErrCodeUnresolvedIndex, "test"),
			code:     ErrCodeUnresolvedIndex,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeUnresolvedIndex, "test"),
			code:     ErrCodeMalformedManifest,
			expected: false,
		},
		{
			name:     "outer code of wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeMalformedLockGraph, "inner"), "outer"),
			code:     ErrCodeInternal,
			expected: true,
		},
		{
			name:     "inner code of wrapped error",
			err:      Wrap(ErrCodeInternal, New(ErrCodeMalformedLockGraph, "inner"), "outer"),
			code:     ErrCodeMalformedLockGraph,
			expected: true,
		},
		{
			name:     "non-Error type",
			err:      errors.New("plain error"),
			code:     ErrCodeInvalidInput,
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			code:     ErrCodeInvalidInput,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Code
	}{
		{"Error type", New(ErrCodeInvalidPackage, "test"), ErrCodeInvalidPackage},
		{"plain error", errors.New("plain"), ""},
		{"nil", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetCode(tt.err); got != tt.expected {
				t.Errorf("GetCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"Error type", New(ErrCodeInvalidInput, "friendly message"), "friendly message"},
		{"wrapped", Wrap(ErrCodeFileNotFound, errors.New("no such file"), "read uv.lock"), "read uv.lock: no such file"},
		{"plain error", errors.New("plain error"), "plain error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestOrphanWarning(t *testing.T) {
	w := &OrphanWarning{Package: "six", Version: "1.16.0"}
	expected := "package six==1.16.0 is not reachable from any dependency group and was omitted"
	if w.Error() != expected {
		t.Errorf("Error() = %v, want %v", w.Error(), expected)
	}
	if w.Code() != ErrCodeOrphanPackage {
		t.Errorf("Code() = %v, want %v", w.Code(), ErrCodeOrphanPackage)
	}
}
