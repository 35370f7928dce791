package errors

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

// TestNamingErrorIs tests the Is implementation for NamingError.
func TestNamingErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "same error code matches",
			err:    ErrLookupLoop([]string{"a", "b", "a"}),
			target: ErrLookupLoopSentinel,
			want:   true,
		},
		{
			name:   "different error code does not match",
			err:    ErrLookupLoop([]string{"a"}),
			target: ErrResolutionSentinel,
			want:   false,
		},
		{
			name:   "wrapped error matches",
			err:    ErrConfiguration("bad batch", ErrDuplicateBinding("comp/x", "component")),
			target: ErrDuplicateBindingSentinel,
			want:   true,
		},
		{
			name:   "fmt wrapped error matches",
			err:    fmt.Errorf("lookup: %w", ErrTransientUnavailable("registry")),
			target: ErrTransientUnavailableSentinel,
			want:   true,
		},
		{
			name:   "nil target does not match",
			err:    ErrNameNotFound("x"),
			target: nil,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDeployErrorIs tests the Is implementation for DeployError.
func TestDeployErrorIs(t *testing.T) {
	err := NewDeployError("app/web/servlet", "comp/env/ds", ErrDuplicateBinding("comp/env/ds", "component"))

	if !Is(err, &DeployError{Unit: "app/web/servlet"}) {
		t.Error("expected unit match")
	}
	if Is(err, &DeployError{Unit: "other"}) {
		t.Error("unexpected unit match")
	}
	if !IsDuplicateBinding(err) {
		t.Error("expected cause to be visible through DeployError")
	}
	if !IsConfiguration(err) {
		t.Error("duplicate bindings are configuration errors")
	}
	want := "deployment app/web/servlet: binding comp/env/ds: binding 'comp/env/ds' already exists in component namespace"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestResolutionVariants(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		variant string
	}{
		{"default", ErrDefaultBindingNotFound("comp/env/ds", "sql.DB", "comp/env/ds", "default"), VariantDefault},
		{"listener", ErrListenerBindingNotFound("jdbc/ds", "sql.DB", "comp/env/ds", "naming"), VariantListener},
		{"explicit", ErrBindingNotFound("jdbc/ds", "", "comp/env/ds", "naming"), VariantExplicit},
		{"not a resolution error", ErrLookupLoop(nil), ""},
		{"plain error", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolutionVariant(tt.err); got != tt.variant {
				t.Errorf("ResolutionVariant() = %q, want %q", got, tt.variant)
			}
		})
	}
}

func TestResolutionErrorContext(t *testing.T) {
	err := ErrBindingNotFound("jdbc/orders", "sql.DB", "comp/env/orders", "naming")

	if err.String("binding") != "jdbc/orders" {
		t.Errorf("binding = %q", err.String("binding"))
	}
	if err.String("type") != "sql.DB" {
		t.Errorf("type = %q", err.String("type"))
	}
	if err.String("name") != "comp/env/orders" {
		t.Errorf("name = %q", err.String("name"))
	}
	if err.String("path") != "naming" {
		t.Errorf("path = %q", err.String("path"))
	}
	want := "binding 'jdbc/orders' of type sql.DB for reference 'comp/env/orders' could not be resolved"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsAbsent(t *testing.T) {
	if !IsAbsent(ErrTransientUnavailable("naming")) {
		t.Error("transient unavailability is absence")
	}
	if !IsAbsent(ErrNameNotFound("x")) {
		t.Error("a miss is absence")
	}
	if IsAbsent(ErrLookupLoop([]string{"x"})) {
		t.Error("a loop is never absence")
	}
	if IsAbsent(ErrInternalInvariant("nil resource", nil)) {
		t.Error("an invariant violation is never absence")
	}
}

func TestErrTimeoutError(t *testing.T) {
	err := ErrTimeoutError("factory wait", 10*time.Second)
	if !IsTimeout(err) {
		t.Error("expected timeout")
	}
	if err.Context["timeout"] != "10s" {
		t.Errorf("timeout context = %v", err.Context["timeout"])
	}
}
