package language

import "testing"

func TestCanonical(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"es", "es"},
		{"EN", "en"},
		{"pt-br", "pt-BR"},
		{"pt_BR", "pt-BR"},
		{"spa", "es"},
		{"fre", "fr"},
		{"ger", "de"},
		{"spanish", "es"},
		{"French", "fr"},
		{"zh-Hant", "zh-Hant"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Canonical(tt.input)
			if err != nil {
				t.Fatalf("Canonical(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("Canonical(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCanonicalRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "  ", "not a language", "x1"} {
		if _, err := Canonical(input); err == nil {
			t.Errorf("Canonical(%q) expected error", input)
		}
	}
}

func TestToISO2(t *testing.T) {
	tests := map[string]string{
		"eng":   "en",
		"pt-BR": "pt",
		"dutch": "nl",
		"":      "",
	}
	for input, want := range tests {
		if got := ToISO2(input); got != want {
			t.Errorf("ToISO2(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := map[string]string{
		"es":      "Spanish",
		"spanish": "Spanish",
		"ja":      "Japanese",
		"":        "Unknown",
	}
	for input, want := range tests {
		if got := DisplayName(input); got != want {
			t.Errorf("DisplayName(%q) = %q, want %q", input, got, want)
		}
	}
}
