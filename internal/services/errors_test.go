package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"lingocast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrNetwork, "sources", "request", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrNetwork) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"sources", "request", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestKindPrefersOuterMarkers(t *testing.T) {
	network := services.Wrap(services.ErrNetwork, "sources", "get", "", nil)
	exhausted := services.Wrap(services.ErrAllSourcesExhausted, "sources", "failover", "", network)
	if got := services.Kind(exhausted); got != "all_sources_exhausted" {
		t.Fatalf("unexpected kind %q", got)
	}
	limited := services.Wrap(services.ErrRateLimited, "llm", "invoke", "", nil)
	ai := services.Wrap(services.ErrAIProcessing, "llm", "invoke", "", limited)
	if got := services.Kind(ai); got != "rate_limited" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(fmt.Errorf("plain")); got != "transient_failure" {
		t.Fatalf("unexpected kind %q", got)
	}
	if got := services.Kind(nil); got != "" {
		t.Fatalf("expected empty kind for nil, got %q", got)
	}
}
