package message

import (
	"strings"
	"testing"
)

func TestNormalizeTextPlainProse(t *testing.T) {
	res := NormalizeText("hello, how can I help?")
	if res.Text != "hello, how can I help?" {
		t.Errorf("Text = %q, want input verbatim", res.Text)
	}
	if res.FileTree != nil {
		t.Errorf("FileTree = %v, want nil", res.FileTree)
	}
}

func TestNormalizeTextStructuredJSON(t *testing.T) {
	raw := `{"text":"here is your project","fileTree":{"main.go":{"file":{"contents":"package main\n"}}},"buildCommand":{"mainItem":"go","commands":["run","main.go"]}}`

	res := NormalizeText(raw)
	if res.Text != "here is your project" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.FileTree == nil {
		t.Fatal("FileTree = nil, want parsed tree")
	}
	if _, err := res.FileTree.Lookup("main.go"); err != nil {
		t.Errorf("Lookup(main.go) failed: %v", err)
	}
	if res.BuildCommand == nil || res.BuildCommand.MainItem != "go" {
		t.Errorf("BuildCommand = %+v", res.BuildCommand)
	}
}

func TestNormalizeTextTextOnlyObject(t *testing.T) {
	res := NormalizeText(`{"text":"just words"}`)
	if res.Text != "just words" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.FileTree != nil {
		t.Errorf("FileTree = %v, want nil", res.FileTree)
	}
}

func TestNormalizeTextMalformedJSONStaysText(t *testing.T) {
	raw := `{"text": "unterminated`
	res := NormalizeText(raw)
	if res.Text != raw {
		t.Errorf("Text = %q, want raw input", res.Text)
	}
}

func TestNormalizeTextUnrecognizedObjectPrettyPrints(t *testing.T) {
	res := NormalizeText(`{"foo": 1, "bar": [2, 3]}`)
	if res.FileTree != nil {
		t.Errorf("FileTree = %v, want nil", res.FileTree)
	}
	// The fallback serializes with two-space indentation.
	if !strings.Contains(res.Text, "\"foo\": 1") {
		t.Errorf("Text = %q, want pretty-printed object", res.Text)
	}
	if !strings.Contains(res.Text, "\n  ") {
		t.Errorf("Text = %q, want indented output", res.Text)
	}
}

func TestNormalizeTextArrayPrettyPrints(t *testing.T) {
	res := NormalizeText(`[1, 2, 3]`)
	if !res.Renderable() {
		t.Fatal("result not renderable")
	}
	if !strings.Contains(res.Text, "1") {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestNormalizeTextBareJSONString(t *testing.T) {
	// A JSON-encoded string parses, then falls through to the pretty
	// printer since it carries no recognized fields.
	res := NormalizeText(`"quoted"`)
	if !res.Renderable() {
		t.Fatal("result not renderable")
	}
}

func TestNormalizeTotality(t *testing.T) {
	inputs := []any{
		nil,
		"",
		"plain",
		`{"text":""}`,
		`{}`,
		`null`,
		`42`,
		[]byte(`{"fileTree":{}}`),
		StructuredResult{},
		(*StructuredResult)(nil),
		map[string]any{"weird": true},
	}

	for i, in := range inputs {
		res := Normalize(in)
		if !res.Renderable() && res.Text == "" {
			t.Errorf("input %d (%v): result not renderable: %+v", i, in, res)
		}
	}
}

func TestNormalizeTextEmptyStringRenderable(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		res := NormalizeText(in)
		if !res.Renderable() {
			t.Errorf("NormalizeText(%q) not renderable: %+v", in, res)
		}
		// The serialized form of the raw string, not the raw string itself.
		if res.Text == in {
			t.Errorf("NormalizeText(%q) returned the blank input verbatim", in)
		}
	}
}

func TestNormalizeEmptyFileTreeIgnored(t *testing.T) {
	res := NormalizeText(`{"text":"done","fileTree":{}}`)
	if res.FileTree != nil {
		t.Errorf("empty fileTree should be dropped, got %v", res.FileTree)
	}
	if res.Text != "done" {
		t.Errorf("Text = %q", res.Text)
	}
}

func TestNormalizeStructuredPassthrough(t *testing.T) {
	in := StructuredResult{Text: "kept"}
	out := Normalize(in)
	if out.Text != "kept" {
		t.Errorf("Text = %q", out.Text)
	}
}

func TestBodyRoundTrip(t *testing.T) {
	human := TextBody("hi @ai make me a server")
	data, err := human.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	var back Body
	if err := back.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if back.Text() != "hi @ai make me a server" {
		t.Errorf("Text = %q", back.Text())
	}
	if back.Structured() != nil {
		t.Error("human body decoded as structured")
	}

	aiBody := StructuredBody(StructuredResult{Text: "answer"})
	data, err = aiBody.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}

	var aiBack Body
	if err := aiBack.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	s := aiBack.Structured()
	if s == nil || s.Text != "answer" {
		t.Errorf("Structured = %+v", s)
	}
}

func TestBodyKeyDistinguishesVariants(t *testing.T) {
	text := TextBody(`{"text":"x"}`)
	structured := StructuredBody(StructuredResult{Text: "x"})
	if text.Key() == structured.Key() {
		t.Error("text and structured bodies share a key")
	}
}
