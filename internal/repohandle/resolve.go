// Package repohandle resolves a client-supplied repository argument to an
// absolute bare Git directory, per the data model's Repository handle.
package repohandle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolve tries, in order: "<r>.git/.git", "<r>/.git", "<r>.git", "<r>",
// against the filesystem, returning the first candidate that is a
// directory. A leading "/" is stripped; a leading "~/" is expanded
// relative to home.
func Resolve(repoArg, home string) (string, error) {
	r := strings.TrimSpace(repoArg)
	r = strings.TrimPrefix(r, "'")
	r = strings.TrimSuffix(r, "'")

	switch {
	case strings.HasPrefix(r, "~/"):
		r = filepath.Join(home, strings.TrimPrefix(r, "~/"))
	case strings.HasPrefix(r, "/"):
		r = strings.TrimPrefix(r, "/")
		r = filepath.Join(home, r)
	default:
		r = filepath.Join(home, r)
	}

	candidates := []string{
		r + ".git/.git",
		filepath.Join(r, ".git"),
		r + ".git",
		r,
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.IsDir() {
			abs, absErr := filepath.Abs(candidate)
			if absErr != nil {
				return "", fmt.Errorf("resolving absolute path for %q: %w", candidate, absErr)
			}
			return abs, nil
		}
	}

	return "", fmt.Errorf("could not resolve repository %q to a directory", repoArg)
}

// StripDotGit removes a trailing ".git" from a repo argument, as the
// gateway does before resolution.
func StripDotGit(repoArg string) string {
	r := strings.TrimSpace(repoArg)
	r = strings.TrimPrefix(r, "'")
	r = strings.TrimSuffix(r, "'")
	return strings.TrimSuffix(r, ".git")
}
