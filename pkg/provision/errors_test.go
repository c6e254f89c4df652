package provision

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"fatal", NewFatalError("preflight", "no network", errors.New("timeout")), true},
		{"recoverable", NewRecoverableError("reconcile", "install failed", errors.New("exit 1")), false},
		{"plain error", errors.New("boom"), false},
		{"wrapped fatal", fmt.Errorf("outer: %w", NewFatalError("detect", "unknown distro", nil)), true},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRunErrorMessage(t *testing.T) {
	err := NewFatalError("preflight", "host validation failed", errors.New("no route to host"))
	msg := err.Error()

	for _, want := range []string{"preflight", "host validation failed", "no route to host"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestRunErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := NewFatalError("preflight", "check failed", inner)

	if !errors.Is(err, inner) {
		t.Error("wrapped error must be reachable through errors.Is")
	}
}
