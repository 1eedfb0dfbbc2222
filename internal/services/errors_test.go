package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"subweave/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrTransport, "bulk", "translate", "request failed", base)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"bulk", "translate", "request failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransport(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassification(t *testing.T) {
	terminal := services.Wrap(services.ErrTerminal, "structured", "translate", "all credentials failed", nil)
	if !services.IsTerminal(terminal) || services.Retryable(terminal) {
		t.Fatalf("expected terminal classification for %v", terminal)
	}
	transport := services.Wrap(services.ErrTransport, "bulk", "call", "", errors.New("503"))
	if services.IsTerminal(transport) || !services.Retryable(transport) {
		t.Fatalf("expected retryable classification for %v", transport)
	}
	if services.Retryable(fmt.Errorf("wrapped: %w", context.Canceled)) {
		t.Fatal("cancellation must not be retryable")
	}
	if services.Retryable(nil) {
		t.Fatal("nil must not be retryable")
	}
}
