package filetree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type recordingPersister struct {
	saved chan Tree
}

func (p *recordingPersister) SaveFileTree(ctx context.Context, projectID string, tree Tree) error {
	p.saved <- tree
	return nil
}

func waitForSave(t *testing.T, p *recordingPersister) Tree {
	t.Helper()
	select {
	case tree := <-p.saved:
		return tree
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persistence")
		return nil
	}
}

func TestReplaceSupersedesWholesale(t *testing.T) {
	p := &recordingPersister{saved: make(chan Tree, 1)}
	r := NewReconciler(p, zerolog.Nop())

	current := Tree{
		"keep.txt": leaf("old"),
		"gone.txt": leaf("bye"),
	}
	incoming := Tree{
		"keep.txt": leaf("new"),
	}

	got := r.Replace("p1", current, incoming)

	if f, err := got.Lookup("keep.txt"); err != nil || f.Contents != "new" {
		t.Errorf("keep.txt = %v, %v", f, err)
	}
	// Files absent from the incoming snapshot do not survive.
	if _, err := got.Lookup("gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("gone.txt err = %v, want ErrNotFound", err)
	}

	saved := waitForSave(t, p)
	if _, err := saved.Lookup("gone.txt"); !errors.Is(err, ErrNotFound) {
		t.Error("persisted tree still contains the superseded file")
	}
}

func TestReplaceNilIncomingKeepsCurrent(t *testing.T) {
	p := &recordingPersister{saved: make(chan Tree, 1)}
	r := NewReconciler(p, zerolog.Nop())

	current := Tree{"a.txt": leaf("a")}
	got := r.Replace("p1", current, nil)

	if _, err := got.Lookup("a.txt"); err != nil {
		t.Errorf("current tree lost: %v", err)
	}
	select {
	case <-p.saved:
		t.Error("nil incoming must not persist")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPatchFileUpdatesSingleLeaf(t *testing.T) {
	p := &recordingPersister{saved: make(chan Tree, 1)}
	r := NewReconciler(p, zerolog.Nop())

	tree := Tree{
		"src": dir(Tree{
			"main.go": leaf("old"),
			"util.go": leaf("untouched"),
		}),
	}

	got, err := r.PatchFile("p1", tree, "src/main.go", "new contents")
	if err != nil {
		t.Fatal(err)
	}

	if f, _ := got.Lookup("src/main.go"); f.Contents != "new contents" {
		t.Errorf("patched = %q", f.Contents)
	}
	if f, _ := got.Lookup("src/util.go"); f.Contents != "untouched" {
		t.Errorf("sibling = %q", f.Contents)
	}

	waitForSave(t, p)
}

func TestPatchFileMissingPath(t *testing.T) {
	r := NewReconciler(nil, zerolog.Nop())

	tree := Tree{"a.txt": leaf("a")}
	if _, err := r.PatchFile("p1", tree, "b.txt", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := r.PatchFile("p1", tree, "", "x"); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("err = %v, want ErrEmptyPath", err)
	}
}

func TestPatchFileOnDirectory(t *testing.T) {
	r := NewReconciler(nil, zerolog.Nop())

	tree := Tree{"src": dir(Tree{"x.go": leaf("x")})}
	if _, err := r.PatchFile("p1", tree, "src", "x"); !errors.Is(err, ErrNotFile) {
		t.Errorf("err = %v, want ErrNotFile", err)
	}
}
