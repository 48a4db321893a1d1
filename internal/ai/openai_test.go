package ai

import "testing"

func TestNewOpenAIGenerator(t *testing.T) {
	if g := NewOpenAIGenerator("", "gpt-4o-mini"); g != nil {
		t.Error("empty api key must yield a nil generator")
	}

	g := NewOpenAIGenerator("sk-test", "gpt-4o-mini")
	if g == nil {
		t.Fatal("generator not constructed")
	}
	if g.client == nil {
		t.Error("client not configured")
	}
	if g.model != "gpt-4o-mini" {
		t.Errorf("model = %q", g.model)
	}
}
