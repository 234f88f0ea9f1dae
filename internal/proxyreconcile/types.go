// Package proxyreconcile implements the two-way proxy reconciler (§4.D):
// keeping a local bare repository bidirectionally in sync with an
// upstream "proxy" repository via a sibling non-bare working directory
// with two remotes, "here" and "there".
package proxyreconcile

import "sort"

// RefKind is "branch" or "tag", matching the ref tip map in the data model.
type RefKind string

const (
	KindBranch RefKind = "branch"
	KindTag    RefKind = "tag"
)

// Ref identifies one ref entry by kind and short name (without the
// refs/heads/ or refs/tags/ prefix).
type Ref struct {
	Kind RefKind
	Name string
}

// TipMap is {kind}{name} -> commit hash, the ref tip map produced by
// ls-remote and consumed by the diff/policy logic.
type TipMap map[Ref]string

// Side names one of the two remotes the working directory tracks.
type Side string

const (
	SideHere  Side = "here"
	SideThere Side = "there"
)

// SortedListing renders tips as a deterministic sorted "name hash" listing,
// the same shape persisted into .git/SYNCED.
func (t TipMap) SortedListing() string {
	type line struct {
		key  string
		hash string
	}
	lines := make([]line, 0, len(t))
	for ref, hash := range t {
		lines = append(lines, line{key: string(ref.Kind) + " " + ref.Name, hash: hash})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].key < lines[j].key })

	out := ""
	for _, l := range lines {
		out += l.key + " " + l.hash + "\n"
	}
	return out
}

// Equal reports whether two tip maps contain exactly the same entries.
func (t TipMap) Equal(other TipMap) bool {
	if len(t) != len(other) {
		return false
	}
	for ref, hash := range t {
		if other[ref] != hash {
			return false
		}
	}
	return true
}
