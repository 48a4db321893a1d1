// Package filetree models a project's directory layout with inline file
// contents, as produced by AI generations and edited by collaborators.
//
// The wire shape maps each name to either a nested tree (directory) or a
// file leaf:
//
//	{"src": {"main.go": {"file": {"contents": "package main\n"}}}}
package filetree

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MaxDepth bounds tree nesting when decoding and walking. Generated
// projects are user-controlled input, so depth must not be trusted.
const MaxDepth = 64

var (
	ErrTooDeep      = errors.New("file tree exceeds maximum depth")
	ErrNotFound     = errors.New("path not found in file tree")
	ErrNotFile      = errors.New("path is a directory, not a file")
	ErrEmptyPath    = errors.New("empty path")
	ErrInvalidShape = errors.New("invalid file tree shape")
)

// File is the leaf payload: the full contents of one file.
type File struct {
	Contents string `json:"contents"`
}

// Node is either a file leaf or a directory. Exactly one field is set.
type Node struct {
	File *File
	Dir  Tree
}

// IsFile reports whether the node is a file leaf.
func (n *Node) IsFile() bool {
	return n != nil && n.File != nil
}

// Tree maps a path segment to its node. Keys at one level are unique by
// construction; ordering is irrelevant.
type Tree map[string]*Node

// MarshalJSON encodes a node as {"file": {...}} for leaves or as a nested
// object for directories.
func (n *Node) MarshalJSON() ([]byte, error) {
	if n.File != nil {
		return json.Marshal(struct {
			File *File `json:"file"`
		}{File: n.File})
	}
	if n.Dir == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(n.Dir)
}

// UnmarshalJSON decodes a tree with a hard depth bound.
func (t *Tree) UnmarshalJSON(data []byte) error {
	tree, err := decodeTree(data, 0)
	if err != nil {
		return err
	}
	*t = tree
	return nil
}

func decodeTree(data []byte, depth int) (Tree, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	tree := make(Tree, len(raw))
	for name, entry := range raw {
		node, err := decodeNode(entry, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		tree[name] = node
	}
	return tree, nil
}

func decodeNode(data []byte, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, ErrTooDeep
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
	}

	// A leaf is an object whose only key is "file".
	if fileRaw, ok := probe["file"]; ok && len(probe) == 1 {
		var f File
		if err := json.Unmarshal(fileRaw, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidShape, err)
		}
		return &Node{File: &f}, nil
	}

	dir := make(Tree, len(probe))
	for name, entry := range probe {
		child, err := decodeNode(entry, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
		dir[name] = child
	}
	return &Node{Dir: dir}, nil
}

// Entry is one file reached during a walk, with its slash-joined path.
type Entry struct {
	Path string
	File *File
}

// Walk visits every node in preorder with an explicit stack rather than
// recursion, since tree depth is user-controlled. Siblings are visited
// in sorted order for deterministic output; fn returning an error stops
// the walk.
func (t Tree) Walk(fn func(path string, node *Node) error) error {
	type item struct {
		path string
		node *Node
	}

	push := func(stack []item, prefix string, tree Tree) []item {
		names := make([]string, 0, len(tree))
		for name := range tree {
			names = append(names, name)
		}
		sort.Strings(names)

		// Reverse push so the first sibling pops first.
		for i := len(names) - 1; i >= 0; i-- {
			path := names[i]
			if prefix != "" {
				path = prefix + "/" + path
			}
			stack = append(stack, item{path: path, node: tree[names[i]]})
		}
		return stack
	}

	stack := push(nil, "", t)
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := fn(it.path, it.node); err != nil {
			return err
		}
		if it.node != nil && it.node.Dir != nil {
			stack = push(stack, it.path, it.node.Dir)
		}
	}
	return nil
}

// Files returns all file leaves ordered by path.
func (t Tree) Files() []Entry {
	var entries []Entry
	_ = t.Walk(func(path string, node *Node) error {
		if node.IsFile() {
			entries = append(entries, Entry{Path: path, File: node.File})
		}
		return nil
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries
}

// Lookup resolves a slash-separated path to its file leaf.
func (t Tree) Lookup(path string) (*File, error) {
	segments, err := splitPath(path)
	if err != nil {
		return nil, err
	}

	cur := t
	for i, seg := range segments {
		node, ok := cur[seg]
		if !ok || node == nil {
			return nil, ErrNotFound
		}
		if i == len(segments)-1 {
			if node.File == nil {
				return nil, ErrNotFile
			}
			return node.File, nil
		}
		if node.Dir == nil {
			return nil, ErrNotFound
		}
		cur = node.Dir
	}
	return nil, ErrNotFound
}

func splitPath(path string) ([]string, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 || (len(segments) == 1 && segments[0] == "") {
		return nil, ErrEmptyPath
	}
	if len(segments) > MaxDepth {
		return nil, ErrTooDeep
	}
	return segments, nil
}
