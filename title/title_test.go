package title

import "testing"

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "Go Concurrency Basics", "Go Concurrency Basics"},
		{"surrounding quotes", `"Go Concurrency Basics"`, "Go Concurrency Basics"},
		{"single quotes", `'Title'`, "Title"},
		{"keeps only first line", "Title\nSecond line of chatter", "Title"},
		{"leading and trailing space", "  Title  ", "Title"},
		{"quotes then space", `" Title "`, "Title"},
		{"empty", "", ""},
		{"only newline", "\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitize(tt.input); got != tt.want {
				t.Errorf("sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewOllamaGeneratorDefaults(t *testing.T) {
	g, err := NewOllamaGenerator("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.model != "llama3.1:latest" {
		t.Errorf("model = %q, want the default", g.model)
	}
	if g.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", g.timeout, DefaultTimeout)
	}
}
