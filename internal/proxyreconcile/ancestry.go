package proxyreconcile

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// IsAncestor reports whether ancestorHash is an ancestor of (or equal to)
// descendantHash in the repository at workDir, via go-git's commit walk
// rather than shelling out to "git log A..B".
func IsAncestor(workDir, ancestorHash, descendantHash string) (bool, error) {
	if ancestorHash == descendantHash {
		return true, nil
	}

	repo, err := git.PlainOpen(workDir)
	if err != nil {
		return false, fmt.Errorf("opening %s: %w", workDir, err)
	}

	ancestor, err := repo.CommitObject(plumbing.NewHash(ancestorHash))
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", ancestorHash, err)
	}
	descendant, err := repo.CommitObject(plumbing.NewHash(descendantHash))
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", descendantHash, err)
	}

	return ancestor.IsAncestor(descendant)
}

// FastForwardable reports whether moving a ref from oldHash to newHash is a
// fast-forward: oldHash must be an ancestor of newHash. The reconciler does
// not call it; healAmbiguous probes IsAncestor directly.
func FastForwardable(workDir, oldHash, newHash string) (bool, error) {
	return IsAncestor(workDir, oldHash, newHash)
}
