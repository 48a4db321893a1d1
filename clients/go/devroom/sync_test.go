package devroom

import (
	"testing"
	"time"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/message"
)

func eventAt(senderID, text string, at time.Time) message.ChatEvent {
	return message.ChatEvent{
		Message:   message.TextBody(text),
		Sender:    message.Sender{ID: senderID, Email: senderID + "@example.com"},
		Timestamp: at,
	}
}

func TestShouldAppendSuppressesNearDuplicate(t *testing.T) {
	base := time.Now()
	transcript := []message.ChatEvent{
		eventAt("u-a", "hello", base),
	}

	// The server echo of an optimistically rendered message arrives a few
	// hundred milliseconds later.
	echo := eventAt("u-a", "hello", base.Add(400*time.Millisecond))
	if ShouldAppend(transcript, echo) {
		t.Error("near-duplicate echo appended")
	}

	// Skewed the other way too.
	early := eventAt("u-a", "hello", base.Add(-400*time.Millisecond))
	if ShouldAppend(transcript, early) {
		t.Error("near-duplicate with negative skew appended")
	}
}

func TestShouldAppendKeepsGenuineRepeat(t *testing.T) {
	base := time.Now()
	transcript := []message.ChatEvent{
		eventAt("u-a", "hello", base),
	}

	repeat := eventAt("u-a", "hello", base.Add(2*time.Second))
	if !ShouldAppend(transcript, repeat) {
		t.Error("genuine repeat suppressed")
	}
}

func TestShouldAppendDistinguishesSenderAndBody(t *testing.T) {
	base := time.Now()
	transcript := []message.ChatEvent{
		eventAt("u-a", "hello", base),
	}

	if !ShouldAppend(transcript, eventAt("u-b", "hello", base.Add(100*time.Millisecond))) {
		t.Error("different sender suppressed")
	}
	if !ShouldAppend(transcript, eventAt("u-a", "hello!", base.Add(100*time.Millisecond))) {
		t.Error("different body suppressed")
	}
}

func TestShouldAppendOnlyScansDedupWindow(t *testing.T) {
	base := time.Now()
	transcript := []message.ChatEvent{
		eventAt("u-a", "hello", base),
		eventAt("u-b", "later", base.Add(5*time.Second)),
	}

	// Identical to the first entry, but the scan stops at the newer tail
	// event outside the window.
	incoming := eventAt("u-a", "hello", base.Add(6*time.Second))
	if !ShouldAppend(transcript, incoming) {
		t.Error("event outside the window suppressed")
	}
}

func TestShouldAppendEmptyTranscript(t *testing.T) {
	if !ShouldAppend(nil, eventAt("u-a", "first", time.Now())) {
		t.Error("first event suppressed")
	}
}

func TestFileViewApplyTreeDropsVanishedOpenFiles(t *testing.T) {
	v := &FileView{
		Tree: filetree.Tree{
			"a.go": {File: &filetree.File{Contents: "a"}},
			"b.go": {File: &filetree.File{Contents: "b"}},
		},
	}

	if !v.OpenFile("a.go") || !v.OpenFile("b.go") {
		t.Fatal("failed to open existing files")
	}

	v.ApplyTree(filetree.Tree{
		"a.go": {File: &filetree.File{Contents: "regenerated"}},
	})

	if len(v.Open) != 1 || v.Open[0] != "a.go" {
		t.Errorf("Open = %v, want [a.go]", v.Open)
	}
	if f, err := v.Tree.Lookup("a.go"); err != nil || f.Contents != "regenerated" {
		t.Errorf("tree not replaced: %v, %v", f, err)
	}
}

func TestFileViewOpenMissingFile(t *testing.T) {
	v := &FileView{Tree: filetree.Tree{}}
	if v.OpenFile("nope.go") {
		t.Error("opened a file that does not exist")
	}

	// Opening twice keeps a single entry.
	v.Tree = filetree.Tree{"x.go": {File: &filetree.File{Contents: "x"}}}
	v.OpenFile("x.go")
	v.OpenFile("x.go")
	if len(v.Open) != 1 {
		t.Errorf("Open = %v", v.Open)
	}

	v.CloseFile("x.go")
	if len(v.Open) != 0 {
		t.Errorf("Open after close = %v", v.Open)
	}
}
