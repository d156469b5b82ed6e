package llm

import "testing"

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"openai", false},
		{"", false},
		{"anthropic", false},
		{"claude", false},
		{"gemini", true},
		{"garbage", true},
	}
	for _, tt := range tests {
		c, err := NewCompleter(tt.provider, "")
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewCompleter(%q) error = nil, want error", tt.provider)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewCompleter(%q) error = %v", tt.provider, err)
		}
		if c == nil {
			t.Errorf("NewCompleter(%q) returned nil completer", tt.provider)
		}
	}
}
