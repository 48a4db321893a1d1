package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type fakeGenerator struct {
	output string
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.output, g.err
}

func TestInvokeNormalizesStructuredOutput(t *testing.T) {
	gen := &fakeGenerator{
		output: `{"text":"your server","fileTree":{"main.go":{"file":{"contents":"package main\n"}}}}`,
	}
	a := NewAdapter(gen, zerolog.Nop())

	res, err := a.Invoke(context.Background(), "build a server")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "your server" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.FileTree == nil {
		t.Error("file tree not parsed")
	}
}

func TestInvokeNormalizesProseOutput(t *testing.T) {
	gen := &fakeGenerator{output: "plain explanation, no JSON"}
	a := NewAdapter(gen, zerolog.Nop())

	res, err := a.Invoke(context.Background(), "explain")
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "plain explanation, no JSON" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.FileTree != nil {
		t.Errorf("FileTree = %v", res.FileTree)
	}
}

func TestInvokeUpstreamError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	a := NewAdapter(gen, zerolog.Nop())

	if _, err := a.Invoke(context.Background(), "x"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestInvokeNoGenerator(t *testing.T) {
	a := NewAdapter(nil, zerolog.Nop())
	if _, err := a.Invoke(context.Background(), "x"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestApologyShape(t *testing.T) {
	res := Apology()
	if res.Text != ApologyText {
		t.Errorf("Text = %q", res.Text)
	}
	if res.FileTree != nil {
		t.Error("apology must not carry a file tree")
	}
}
