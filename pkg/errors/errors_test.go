package errors

import (
	"errors"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeInvalidKind, "unknown kind: %s", "weldment")

	if err.Code != ErrCodeInvalidKind {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeInvalidKind)
	}

	if err.Message != "unknown kind: weldment" {
		t.Errorf("Message = %v, want %v", err.Message, "unknown kind: weldment")
	}

	expected := "INVALID_KIND: unknown kind: weldment"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrCodeUnavailableSource, cause, "read references of %s", "top")

	if err.Code != ErrCodeUnavailableSource {
		t.Errorf("Code = %v, want %v", err.Code, ErrCodeUnavailableSource)
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

	expected := "UNAVAILABLE_SOURCE: read references of top: connection refused"
	if err.Error() != expected {
		t.Errorf("Error() = %v, want %v", err.Error(), expected)
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
			err:      New(ErrCodeEmptyInput, "test"),
			code:     ErrCodeEmptyInput,
			expected: true,
		},
		{
			name:     "non-matching code",
			err:      New(ErrCodeEmptyInput, "test"),
			code:     ErrCodeUnavailableSource,
			expected: false,
		},
		{
			name:     "wrapped error",
			err:      Wrap(ErrCodeUnavailableSource, New(ErrCodeNotFound, "inner"), "outer"),
			code:     ErrCodeUnavailableSource,
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
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidManifest, "test"),
			expected: ErrCodeInvalidManifest,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			expected: "",
		},
		{
			name:     "nil",
			err:      nil,
			expected: "",
		},
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
		{
			name:     "Error type",
			err:      New(ErrCodeInvalidInput, "friendly message"),
			expected: "friendly message",
		},
		{
			name:     "plain error",
			err:      errors.New("plain error"),
			expected: "plain error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err); got != tt.expected {
				t.Errorf("UserMessage() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCoreHelpers(t *testing.T) {
	if !IsEmptyInput(EmptyInput("selection is empty")) {
		t.Error("IsEmptyInput should match EmptyInput")
	}
	if IsEmptyInput(Unavailable(nil, "closed")) {
		t.Error("IsEmptyInput should not match an unavailable error")
	}

	cause := errors.New("document closed")
	err := Unavailable(cause, "flags of %s", "bracket")
	if !IsUnavailable(err) {
		t.Error("IsUnavailable should match Unavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("Unavailable should keep its cause")
	}

	// A nil cause renders without a trailing cause segment.
	if got := Unavailable(nil, "closed").Error(); got != "UNAVAILABLE_SOURCE: closed" {
		t.Errorf("Error() = %q", got)
	}
}
