// Package reference implements the reference-folder filter:
// splitting a Group into one designated reference member plus the
// duplicates to act on, when the group straddles reference and
// non-reference directories.
package reference

import (
	"path/filepath"
	"strings"

	"github.com/dupefind/dupefind/internal/grouper"
)

// Group is a ReferenceGroup: exactly one reference entry plus
// one or more non-reference duplicates.
type Group struct {
	Key        grouper.Key
	Reference  *grouper.Entry
	Duplicates []*grouper.Entry
}

// ReclaimableBytes computes, for reference mode:
// every non-reference member is reclaimable, so it's members*size rather
// than (members-1)*size.
func (g Group) ReclaimableBytes() int64 {
	var total int64
	for _, d := range g.Duplicates {
		total += d.Size
	}
	return total
}

// isUnderAny reports whether path is inside (or equal to) any of dirs.
func isUnderAny(path string, dirs []string) bool {
	for _, dir := range dirs {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			continue
		}
		if rel == "." || !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// Partition applies the reference-folder rule to every group: a group becomes a
// Group iff it has at least one member inside referenceDirs and at least
// one outside. Groups entirely inside referenceDirs are discarded (nothing
// to act on); groups entirely outside pass through untouched as ordinary
// groups in the second return value.
//
// When multiple members qualify as reference candidates, the
// lexicographically smallest path is chosen — left implementation-defined
// upstream ("typically the last encountered"); this engine
// resolves it deterministically instead (see DESIGN.md, Open Question (a)),
// relying on Group.Members already being path-sorted so the first
// reference candidate encountered is the smallest.
func Partition(groups []grouper.Group, referenceDirs []string) ([]Group, []grouper.Group) {
	if len(referenceDirs) == 0 {
		return nil, groups
	}

	var referenced []Group
	var ordinary []grouper.Group

	for _, g := range groups {
		var refs, dups []*grouper.Entry
		for _, e := range g.Members.Items() {
			if isUnderAny(e.Path, referenceDirs) {
				refs = append(refs, e)
			} else {
				dups = append(dups, e)
			}
		}

		switch {
		case len(refs) == 0:
			ordinary = append(ordinary, g)
		case len(dups) == 0:
			// Entirely inside reference directories: nothing to act on.
			continue
		default:
			referenced = append(referenced, Group{
				Key:        g.Key,
				Reference:  refs[0],
				Duplicates: dups,
			})
		}
	}

	return referenced, ordinary
}
