package services_test

import (
	"errors"
	"strings"
	"testing"

	"briefcast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"download", "yt-dlp", "failed"} {
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
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindAndRetryable(t *testing.T) {
	timeout := services.Wrap(services.ErrTimeout, "push", "send", "deadline", nil)
	if kind := services.Kind(timeout); kind != "Timeout" {
		t.Fatalf("expected Timeout kind, got %q", kind)
	}
	if !services.Retryable(timeout) {
		t.Fatal("expected timeout to be retryable")
	}

	invalid := services.Wrap(services.ErrValidation, "fetch", "parse", "no url", nil)
	if services.Retryable(invalid) {
		t.Fatal("expected validation error to be permanent")
	}
	if kind := services.Kind(errors.New("plain")); kind != "Error" {
		t.Fatalf("expected Error kind for unmarked error, got %q", kind)
	}
	if services.Kind(nil) != "" || services.Describe(nil) != "" {
		t.Fatal("expected empty kind and description for nil")
	}
}

func TestDescribePrefixesKind(t *testing.T) {
	err := services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "exit 1", nil)
	got := services.Describe(err)
	if !strings.HasPrefix(got, "ExternalTool: ") {
		t.Fatalf("unexpected description %q", got)
	}
}
