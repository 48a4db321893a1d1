package filetree

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func leaf(contents string) *Node {
	return &Node{File: &File{Contents: contents}}
}

func dir(t Tree) *Node {
	return &Node{Dir: t}
}

func TestUnmarshalWireShape(t *testing.T) {
	raw := `{
		"main.go": {"file": {"contents": "package main\n"}},
		"src": {
			"util.go": {"file": {"contents": "package src\n"}}
		}
	}`

	var tree Tree
	if err := json.Unmarshal([]byte(raw), &tree); err != nil {
		t.Fatal(err)
	}

	f, err := tree.Lookup("main.go")
	if err != nil {
		t.Fatal(err)
	}
	if f.Contents != "package main\n" {
		t.Errorf("contents = %q", f.Contents)
	}

	f, err = tree.Lookup("src/util.go")
	if err != nil {
		t.Fatal(err)
	}
	if f.Contents != "package src\n" {
		t.Errorf("contents = %q", f.Contents)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	tree := Tree{
		"README.md": leaf("# hello"),
		"cmd":       dir(Tree{"main.go": leaf("package main")}),
	}

	data, err := json.Marshal(tree)
	if err != nil {
		t.Fatal(err)
	}

	var back Tree
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}

	f, err := back.Lookup("cmd/main.go")
	if err != nil {
		t.Fatal(err)
	}
	if f.Contents != "package main" {
		t.Errorf("contents = %q", f.Contents)
	}
}

func TestUnmarshalRejectsExcessiveDepth(t *testing.T) {
	var sb strings.Builder
	for i := 0; i <= MaxDepth+1; i++ {
		sb.WriteString(`{"d":`)
	}
	sb.WriteString(`{"file":{"contents":"x"}}`)
	for i := 0; i <= MaxDepth+1; i++ {
		sb.WriteString(`}`)
	}

	var tree Tree
	err := json.Unmarshal([]byte(sb.String()), &tree)
	if !errors.Is(err, ErrTooDeep) {
		t.Errorf("err = %v, want ErrTooDeep", err)
	}
}

func TestUnmarshalRejectsNonObject(t *testing.T) {
	var tree Tree
	if err := json.Unmarshal([]byte(`"not a tree"`), &tree); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("err = %v, want ErrInvalidShape", err)
	}
}

func TestLookupErrors(t *testing.T) {
	tree := Tree{
		"a": dir(Tree{"b.txt": leaf("x")}),
	}

	if _, err := tree.Lookup(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("empty path: err = %v", err)
	}
	if _, err := tree.Lookup("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing: err = %v", err)
	}
	if _, err := tree.Lookup("a"); !errors.Is(err, ErrNotFile) {
		t.Errorf("directory: err = %v", err)
	}
	if _, err := tree.Lookup("a/b.txt/deeper"); !errors.Is(err, ErrNotFound) {
		t.Errorf("past a leaf: err = %v", err)
	}
}

func TestWalkVisitsSortedPaths(t *testing.T) {
	tree := Tree{
		"z.txt": leaf("z"),
		"a": dir(Tree{
			"b.txt": leaf("b"),
			"a.txt": leaf("a"),
		}),
	}

	var paths []string
	err := tree.Walk(func(path string, node *Node) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "a/a.txt", "a/b.txt", "z.txt"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestFilesSkipsDirectories(t *testing.T) {
	tree := Tree{
		"src":   dir(Tree{"x.go": leaf("x")}),
		"go.md": leaf("doc"),
	}

	entries := tree.Files()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Path != "go.md" || entries[1].Path != "src/x.go" {
		t.Errorf("entries = %+v", entries)
	}
}
