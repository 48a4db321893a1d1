package devroom

import (
	"time"

	"github.com/devroom-hq/devroom/internal/filetree"
	"github.com/devroom-hq/devroom/internal/message"
)

// dedupWindow is how close two identical events from the same sender
// must be before the second is treated as a duplicate delivery. Clock
// skew between the optimistic local copy and the server-stamped echo
// stays well inside a second.
const dedupWindow = time.Second

// ShouldAppend reports whether an incoming event belongs in the
// transcript, or is a duplicate of one already rendered. An event is a
// duplicate when the tail of the transcript holds an event from the
// same sender with the same body within the dedup window. Identical
// text sent again later is a genuine repeat and is kept.
func ShouldAppend(existing []message.ChatEvent, incoming message.ChatEvent) bool {
	key := incoming.Message.Key()
	for i := len(existing) - 1; i >= 0; i-- {
		prev := existing[i]

		delta := incoming.Timestamp.Sub(prev.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta >= dedupWindow {
			break
		}

		if prev.Sender.ID == incoming.Sender.ID && prev.Message.Key() == key {
			return false
		}
	}
	return true
}

// FileView tracks which files of a project's tree are open in an
// editor. When a fresh tree snapshot arrives, open files that no longer
// exist are closed and the rest keep their position.
type FileView struct {
	Tree filetree.Tree
	Open []string
}

// ApplyTree replaces the view's tree with the incoming snapshot and
// drops open files the snapshot no longer contains.
func (v *FileView) ApplyTree(incoming filetree.Tree) {
	v.Tree = incoming

	kept := v.Open[:0]
	for _, path := range v.Open {
		if _, err := incoming.Lookup(path); err == nil {
			kept = append(kept, path)
		}
	}
	v.Open = kept
}

// OpenFile marks a file open if it exists in the current tree.
func (v *FileView) OpenFile(path string) bool {
	if _, err := v.Tree.Lookup(path); err != nil {
		return false
	}
	for _, p := range v.Open {
		if p == path {
			return true
		}
	}
	v.Open = append(v.Open, path)
	return true
}

// CloseFile removes a file from the open set.
func (v *FileView) CloseFile(path string) {
	for i, p := range v.Open {
		if p == path {
			v.Open = append(v.Open[:i], v.Open[i+1:]...)
			return
		}
	}
}
