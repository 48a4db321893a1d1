package filetree

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Persister stores the full tree for a project. Persistence is best-effort
// from the reconciler's perspective: failures are logged, never surfaced.
type Persister interface {
	SaveFileTree(ctx context.Context, projectID string, tree Tree) error
}

// Reconciler applies incoming trees to a working copy and hands the result
// to a persistence collaborator without blocking the caller on the outcome.
//
// Two deliberately distinct policies coexist:
//   - Replace: an AI generation is a complete regeneration, so the incoming
//     tree supersedes the current one wholesale. No per-file merge, no
//     conflict detection; last writer wins.
//   - PatchFile: a human edit is scoped to one path, so only that leaf is
//     updated and the rest of the tree is untouched.
type Reconciler struct {
	persist Persister
	logger  zerolog.Logger
	timeout time.Duration
}

// NewReconciler creates a reconciler backed by the given persister, which
// may be nil for a purely local working copy.
func NewReconciler(persist Persister, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		persist: persist,
		logger:  logger,
		timeout: 10 * time.Second,
	}
}

// Replace supersedes current with incoming and persists the result.
// The returned tree is always incoming, regardless of persistence outcome.
func (r *Reconciler) Replace(projectID string, current, incoming Tree) Tree {
	if incoming == nil {
		return current
	}
	r.persistAsync(projectID, incoming)
	return incoming
}

// PatchFile updates the contents of one existing file in place and
// persists the whole resulting tree.
func (r *Reconciler) PatchFile(projectID string, tree Tree, path, contents string) (Tree, error) {
	segments, err := splitPath(path)
	if err != nil {
		return tree, err
	}

	cur := tree
	for i, seg := range segments {
		node, ok := cur[seg]
		if !ok || node == nil {
			return tree, ErrNotFound
		}
		if i == len(segments)-1 {
			if node.File == nil {
				return tree, ErrNotFile
			}
			node.File.Contents = contents
			r.persistAsync(projectID, tree)
			return tree, nil
		}
		if node.Dir == nil {
			return tree, ErrNotFound
		}
		cur = node.Dir
	}
	return tree, ErrNotFound
}

// persistAsync hands the tree to the persister without blocking the caller.
func (r *Reconciler) persistAsync(projectID string, tree Tree) {
	if r.persist == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := r.persist.SaveFileTree(ctx, projectID, tree); err != nil {
			r.logger.Error().
				Err(err).
				Str("project_id", projectID).
				Msg("file tree persistence failed")
		}
	}()
}
