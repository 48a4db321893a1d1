package room

import "testing"

func TestDetectDirective(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		prompt string
		ok     bool
	}{
		{"leading marker", "@ai explain recursion", "explain recursion", true},
		{"marker mid-message", "hey @ai build me a server", "hey  build me a server", true},
		{"marker at end", "can you help @ai", "can you help", true},
		{"bare marker", "@ai", "", false},
		{"marker with only whitespace", "@ai   ", "", false},
		{"no marker", "just chatting", "", false},
		{"empty body", "", "", false},
		{"only first occurrence stripped", "@ai ping @ai", "ping @ai", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prompt, ok := DetectDirective(tt.body)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if prompt != tt.prompt {
				t.Errorf("prompt = %q, want %q", prompt, tt.prompt)
			}
		})
	}
}
