package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteSRT writes one cue per text, two seconds apart, to path.
func WriteSRT(t testing.TB, path string, texts ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var sb strings.Builder
	for i, text := range texts {
		start := i * 2
		fmt.Fprintf(&sb, "%d\n00:00:%02d,000 --> 00:00:%02d,500\n%s\n\n", i+1, start, start+1, text)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
