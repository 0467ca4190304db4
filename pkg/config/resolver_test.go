package config

import (
	"errors"
	"strings"
	"testing"
)

func TestConfigResolver_Precedence(t *testing.T) {
	first := NewFlagSource()
	first.Set("KEY", "first")
	second := NewFlagSource()
	second.Set("KEY", "second")
	second.Set("ONLY_SECOND", 5)
	second.Set("FLAG", true)

	resolver := NewConfigResolver(first, second)

	if got := resolver.ResolveString("KEY", "default"); got != "first" {
		t.Errorf("expected first source to win, got %s", got)
	}
	if got := resolver.ResolveInt("ONLY_SECOND", 1); got != 5 {
		t.Errorf("expected fallthrough to second source, got %d", got)
	}
	if got := resolver.ResolveInt("MISSING", 9); got != 9 {
		t.Errorf("expected default, got %d", got)
	}
	if got := resolver.ResolveBool("FLAG", false); !got {
		t.Error("expected bool from second source")
	}
	if got := resolver.ResolveBool("MISSING", true); !got {
		t.Error("expected bool default")
	}
}

func TestConfigResolver_UnparseableValue(t *testing.T) {
	t.Setenv("TEST_RESOLVE_INT", "twelve")
	t.Setenv("TEST_RESOLVE_BOOL", "sometimes")
	t.Setenv("TEST_RESOLVE_OK", "3")

	resolver := NewConfigResolver(NewFlagSource(), &EnvSource{})

	if got := resolver.ResolveInt("TEST_RESOLVE_OK", 1); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if resolver.Err() != nil {
		t.Fatalf("expected no error yet, got %v", resolver.Err())
	}

	resolver.ResolveInt("TEST_RESOLVE_INT", 1)
	resolver.ResolveBool("TEST_RESOLVE_BOOL", false)

	err := resolver.Err()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	for _, want := range []string{`TEST_RESOLVE_INT must be an integer, got "twelve"`, `TEST_RESOLVE_BOOL must be true or false, got "sometimes"`} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}
