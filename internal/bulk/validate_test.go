package bulk

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	source := "Hello world. ◌ Good morning ◌ "
	tests := []struct {
		name       string
		translated string
		want       error
	}{
		{"ok", "Hola mundo. ◌ Buenos días ◌", nil},
		{"ok spacing", "Hola mundo.◌Buenos días◌", nil},
		{"empty", "   ", ErrEmptyResponse},
		{"markers only", "◌ ◌", ErrNoWords},
		{"missing marker", "Hola mundo. Buenos días ◌", ErrMarkerCount},
		{"extra marker", "Hola ◌ mundo. ◌ Buenos días ◌", ErrMarkerCount},
		{"echo", "hello WORLD. ◌ good morning ◌", ErrUnchanged},
		{"near echo", "Hello world. ◌ Good mornin ◌", ErrUnchanged},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(source, tt.translated, DefaultEchoThreshold)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestLikelyUnchangedIgnoresMarkers(t *testing.T) {
	if !LikelyUnchanged("a ◌ b ◌ ", "a b", DefaultEchoThreshold) {
		t.Fatal("marker-only difference should count as unchanged")
	}
	if LikelyUnchanged("good morning", "buenos días", DefaultEchoThreshold) {
		t.Fatal("translation reported as unchanged")
	}
}
